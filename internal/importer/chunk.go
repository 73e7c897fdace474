package importer

import (
	"iter"

	"product-catalog/internal/domain"
)

// DefaultChunkSize is the number of records written per transaction.
const DefaultChunkSize = 50

// Chunk is a run of consecutive records, in file order, processed as one
// transaction. Index counts chunks from zero within a batch.
type Chunk struct {
	Index   int
	Records []domain.ProductRecord
}

// Chunks groups records into chunks of up to size records. The trailing
// partial chunk is emitted too. size <= 0 means DefaultChunkSize.
func Chunks(records iter.Seq[domain.ProductRecord], size int) iter.Seq[Chunk] {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return func(yield func(Chunk) bool) {
		index := 0
		buf := make([]domain.ProductRecord, 0, size)
		for rec := range records {
			buf = append(buf, rec)
			if len(buf) < size {
				continue
			}
			if !yield(Chunk{Index: index, Records: buf}) {
				return
			}
			index++
			buf = make([]domain.ProductRecord, 0, size)
		}
		if len(buf) > 0 {
			yield(Chunk{Index: index, Records: buf})
		}
	}
}

// first and last product numbers identify a chunk to an operator.
func (c Chunk) bounds() (string, string) {
	if len(c.Records) == 0 {
		return "", ""
	}
	return c.Records[0].ProductNumber, c.Records[len(c.Records)-1].ProductNumber
}
