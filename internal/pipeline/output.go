package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/roach88/tmlink/internal/ir"
)

// writeAtomic encodes m into a temporary file in path's directory and
// renames it over path. On any failure the temporary file is removed and
// path is left as it was.
func writeAtomic(path string, m *ir.Module) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	release := RemoveOnSignal(tmpName)
	defer release()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err = ir.Encode(tmp, m); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// writeStream encodes m to w in one write so a failed encode emits nothing.
func writeStream(w io.Writer, m *ir.Module) error {
	data, err := ir.Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
