package ecgen

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"ecgen/internal/curve"
)

// openOutput opens path for writing; "-" means stdout, which is never closed.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create %s", path)
	}
	return f, f.Close, nil
}

// pointWriter streams points as "x y" lines. O is written as "-1 -1".
type pointWriter struct {
	bw    *bufio.Writer
	close func() error
	n     int
}

func newPointWriter(path string, stdout io.Writer) (*pointWriter, error) {
	w, closeFn, err := openOutput(path, stdout)
	if err != nil {
		return nil, err
	}
	return &pointWriter{bw: bufio.NewWriterSize(w, 1<<20), close: closeFn}, nil
}

func (w *pointWriter) Write(P curve.Point) error {
	w.n++
	if P.IsInfinity() {
		_, err := w.bw.WriteString("-1 -1\n")
		return err
	}
	buf := P.X().Append(nil, 10)
	buf = append(buf, ' ')
	buf = P.Y().Append(buf, 10)
	buf = append(buf, '\n')
	_, err := w.bw.Write(buf)
	return err
}

func (w *pointWriter) Close() error {
	if err := w.bw.Flush(); err != nil {
		return multierr.Append(errors.Wrap(err, "flush points"), w.close())
	}
	return w.close()
}

func writePoints(path string, stdout io.Writer, pts []curve.Point) (int, error) {
	pw, err := newPointWriter(path, stdout)
	if err != nil {
		return 0, err
	}
	for _, P := range pts {
		if err := pw.Write(P); err != nil {
			return pw.n, multierr.Append(errors.Wrap(err, "write point"), pw.Close())
		}
	}
	return pw.n, pw.Close()
}
