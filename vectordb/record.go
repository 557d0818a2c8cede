package vectordb

import (
	"sort"

	"github.com/viant/bintly"
)

// EncodeBinary encodes the record for persistence. Metadata keys are written
// sorted so encoding is deterministic.
func (r *Record) EncodeBinary(stream *bintly.Writer) error {
	stream.String(r.ID)
	stream.String(r.Text)
	stream.Int32(int32(len(r.Vector)))
	for _, v := range r.Vector {
		stream.Float32(v)
	}
	keys := make([]string, 0, len(r.Metadata))
	for k := range r.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	stream.Int16(int16(len(keys)))
	for _, k := range keys {
		stream.String(k)
		stream.String(r.Metadata[k])
	}
	return nil
}

// DecodeBinary restores a record written by EncodeBinary.
func (r *Record) DecodeBinary(stream *bintly.Reader) error {
	stream.String(&r.ID)
	stream.String(&r.Text)
	var vecLen int32
	stream.Int32(&vecLen)
	r.Vector = make([]float32, vecLen)
	for i := range r.Vector {
		stream.Float32(&r.Vector[i])
	}
	var size int16
	stream.Int16(&size)
	r.Metadata = make(map[string]string, size)
	for i := 0; i < int(size); i++ {
		var key, value string
		stream.String(&key)
		stream.String(&value)
		r.Metadata[key] = value
	}
	return nil
}
