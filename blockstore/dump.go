package blockstore

import (
	"io"
	"log/slog"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// MarshalJSON encodes the block map: the storage geometry and every run in block
// order. Element values are not included.
//
//	{"blockSize":10,"generation":0,"blocks":4,
//	 "runs":[{"start":0,"blocks":1,"free":false,"len":3,"borrowed":false},
//	         {"start":1,"blocks":3,"free":true}]}
func (s *Storage[T]) MarshalJSON() ([]byte, error) {
	w := jwriter.NewWriter()
	s.writeMap(&w)
	if err := w.Error(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// WriteMap writes the JSON block map to out.
func (s *Storage[T]) WriteMap(out io.Writer) error {
	b, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}

func (s *Storage[T]) writeMap(w *jwriter.Writer) {
	obj := w.Object()
	obj.Name("blockSize").Int(s.blockSize)
	obj.Name("generation").Int(int(s.generation))
	obj.Name("blocks").Int(len(s.tags))
	obj.Name("closed").Bool(s.closed)

	runs := obj.Name("runs").Array()
	s.walk(func(r RunInfo) {
		ro := runs.Object()
		ro.Name("start").Int(r.Start)
		ro.Name("blocks").Int(r.Blocks)
		ro.Name("free").Bool(r.Free)
		if !r.Free {
			ro.Name("len").Int(r.Len)
			ro.Name("borrowed").Bool(r.Borrowed)
		}
		ro.End()
	})
	runs.End()
	obj.End()
}

// LogRuns writes one record per allocated run to log, in block order.
func (s *Storage[T]) LogRuns(log *slog.Logger) {
	s.walk(func(r RunInfo) {
		if r.Free {
			return
		}
		log.Info("blockstore: run",
			"start", r.Start,
			"blocks", r.Blocks,
			"len", r.Len,
			"capacity", r.Blocks*s.blockSize,
			"borrowed", r.Borrowed,
		)
	})
}
