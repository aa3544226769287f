package export

import (
	"os"

	"github.com/arawak/singora/internal/staging"
)

// Result holds either a staged archive or a JSON body.
type Result struct {
	Download *Download
	Body     any
}

// Download is a staged archive. The caller streams it with Open and must call
// Release once the response has been sent or abandoned.
type Download struct {
	ID       string
	Filename string
	Entries  int
	res      *staging.Resource
}

func (d *Download) Open() (*os.File, error) {
	f, err := d.res.Open()
	if err != nil {
		return nil, stagingFailure("open staged archive", err)
	}
	return f, nil
}

func (d *Download) Release() error {
	return d.res.Release()
}
