package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"product-catalog/internal/domain"
)

// CSVSource streams product records out of a delimited file. It holds one
// line in memory at a time and can be iterated once; reopen the file to
// read it again.
type CSVSource struct {
	name    string
	rc      io.ReadCloser
	reader  *csv.Reader
	index   map[string]int
	logger  *zap.Logger
	metrics Metrics

	mu       sync.Mutex
	consumed bool
	err      error

	closeOnce sync.Once
	closeErr  error
}

// OpenCSV opens path and reads its header.
func OpenCSV(path string, logger *zap.Logger, metrics Metrics) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFileUnreadable, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrFileUnreadable, path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileUnreadable, path)
	}
	return NewCSVSource(path, f, logger, metrics)
}

// NewCSVSource wraps an already open stream. rc is closed when iteration
// ends, when Close is called, or right away if the header cannot be read.
// A leading byte order mark (UTF-8 or UTF-16) is honoured and stripped.
func NewCSVSource(name string, rc io.ReadCloser, logger *zap.Logger, metrics Metrics) (*CSVSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	decoded := transform.NewReader(rc, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	r := csv.NewReader(decoded)
	r.FieldsPerRecord = -1 // short rows read as blank trailing cells
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		rc.Close()
		var parseErr *csv.ParseError
		switch {
		case errors.Is(err, io.EOF):
			return nil, fmt.Errorf("%w: %s is empty", ErrHeaderMissing, name)
		case errors.As(err, &parseErr):
			return nil, fmt.Errorf("%w: %s: %v", ErrHeaderMissing, name, err)
		default:
			return nil, fmt.Errorf("%w: %s: %v", ErrFileUnreadable, name, err)
		}
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := index[h]; !dup && h != "" {
			index[h] = i
		}
	}
	for _, col := range []string{ColProductNumber, ColCategoryName} {
		if _, ok := index[col]; !ok {
			rc.Close()
			return nil, fmt.Errorf("%w: %s has no %q column", ErrHeaderMissing, name, col)
		}
	}

	return &CSVSource{
		name:    name,
		rc:      rc,
		reader:  r,
		index:   index,
		logger:  logger.With(zap.String("file", name)),
		metrics: metrics,
	}, nil
}

// Name identifies the source in logs and batch names.
func (s *CSVSource) Name() string {
	return s.name
}

// Records yields every row that passes validation and transformation.
// Rejected rows are logged and skipped. The underlying file is closed when
// the sequence ends, including when the consumer stops early.
func (s *CSVSource) Records() iter.Seq[domain.ProductRecord] {
	return func(yield func(domain.ProductRecord) bool) {
		defer s.Close()

		s.mu.Lock()
		if s.consumed {
			s.mu.Unlock()
			return
		}
		s.consumed = true
		s.mu.Unlock()

		for {
			fields, err := s.reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					s.logger.Info("skipped malformed line",
						zap.Int("line", parseErr.StartLine),
						zap.Error(err),
					)
					s.metrics.RowRejected(rejectReason(err))
					continue
				}
				s.setErr(fmt.Errorf("%w: %s: %v", ErrFileUnreadable, s.name, err))
				return
			}

			line, _ := s.reader.FieldPos(0)
			row := s.rawRow(fields)
			rec, err := ParseRow(row)
			if err != nil {
				s.logger.Info("skipped invalid row",
					zap.Int("line", line),
					zap.Any("row", row),
					zap.String("reason", rejectReason(err)),
					zap.Error(err),
				)
				s.metrics.RowRejected(rejectReason(err))
				continue
			}
			s.metrics.RowAccepted()
			if !yield(rec) {
				return
			}
		}
	}
}

// Err returns the read error that ended iteration early, if any.
func (s *CSVSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the file. It is safe to call more than once.
func (s *CSVSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.rc.Close()
	})
	return s.closeErr
}

func (s *CSVSource) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *CSVSource) rawRow(fields []string) RawRow {
	row := make(RawRow, len(s.index))
	for col, pos := range s.index {
		if pos < len(fields) {
			row[col] = fields[pos]
		} else {
			row[col] = ""
		}
	}
	return row
}
