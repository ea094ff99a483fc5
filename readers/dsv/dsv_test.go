package dsv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/creekml/creek/reader"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpen(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
		assert.Error(t, err)
	})

	t.Run("reads rows positionally", func(t *testing.T) {
		f, err := Open(writeFile(t, "a,1\nb,2\n"))
		assert.NoError(t, err)
		defer f.Close()

		assert.True(t, f.Next())
		assert.Equal(t, "a", f.Record().Field(0))
		assert.Equal(t, "1", f.Record().Field(1))
		assert.True(t, f.Next())
		assert.Equal(t, "b", f.Record().Field(0))
		assert.False(t, f.Next())
		assert.NoError(t, f.Err())
	})

	t.Run("header resolves fields by name", func(t *testing.T) {
		f, err := Open(writeFile(t, "speaker,line\nhamlet,to be\n"), WithHeader())
		assert.NoError(t, err)
		defer f.Close()

		assert.True(t, f.Next())
		speaker, ok := f.Record().Get("speaker")
		assert.True(t, ok)
		assert.Equal(t, "hamlet", speaker)
		line, ok := f.Record().Get("line")
		assert.True(t, ok)
		assert.Equal(t, "to be", line)

		_, ok = f.Record().Get("ghost")
		assert.False(t, ok)
	})

	t.Run("custom delimiter", func(t *testing.T) {
		f, err := Open(writeFile(t, "a\t1\nb\t2\n"), WithComma('\t'))
		assert.NoError(t, err)
		defer f.Close()

		assert.True(t, f.Next())
		assert.Equal(t, 2, f.Record().Len())
		assert.Equal(t, "a", f.Record().Field(0))
	})

	t.Run("quoted fields", func(t *testing.T) {
		f, err := Open(writeFile(t, "hamlet,\"to be, or not\"\n"))
		assert.NoError(t, err)
		defer f.Close()

		assert.True(t, f.Next())
		assert.Equal(t, "to be, or not", f.Record().Field(1))
	})

	t.Run("field out of range is empty", func(t *testing.T) {
		f, err := Open(writeFile(t, "a\n"))
		assert.NoError(t, err)
		defer f.Close()
		assert.True(t, f.Next())
		assert.Equal(t, "", f.Record().Field(5))
	})
}

func TestReset(t *testing.T) {
	t.Run("reset replays from the first data row", func(t *testing.T) {
		f, err := Open(writeFile(t, "speaker,line\na,x\nb,y\n"), WithHeader())
		assert.NoError(t, err)
		defer f.Close()

		var first []string
		for f.Next() {
			s, _ := f.Record().Get("speaker")
			first = append(first, s)
		}
		assert.NoError(t, f.Err())
		assert.Equal(t, []string{"a", "b"}, first)

		assert.NoError(t, reader.ResetIfPossible[Row](f))

		var second []string
		for f.Next() {
			s, _ := f.Record().Get("speaker")
			second = append(second, s)
		}
		assert.NoError(t, f.Err())
		assert.Equal(t, first, second)
	})

	t.Run("restarts after close", func(t *testing.T) {
		f, err := Open(writeFile(t, "a\nb\n"))
		assert.NoError(t, err)
		assert.True(t, f.Next())
		assert.NoError(t, f.Close())
		assert.False(t, f.Next())

		assert.NoError(t, f.Reset())
		got, err := reader.Collect[Row](f)
		assert.NoError(t, err)
		assert.Equal(t, 2, len(got))
		assert.NoError(t, f.Close())
	})

	t.Run("feeds pipeline readers", func(t *testing.T) {
		f, err := Open(writeFile(t, "a,1\nb,2\nc,3\n"))
		assert.NoError(t, err)
		defer f.Close()

		names, err := reader.Collect(reader.Map[Row, string](f, func(r Row) (string, error) {
			return r.Field(0), nil
		}))
		assert.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, names)
	})
}
