package selection

import (
	"context"
	"errors"
	"io"
	"math"

	"github.com/abema/go-mp4"
)

var errNotSeekable = errors.New("staged file is not seekable")

type DurationProber interface {
	Probe(ctx context.Context, blob *Blob) (float64, error)
}

// MP4Prober reads the movie header of MP4/QuickTime files.
type MP4Prober struct{}

func (MP4Prober) Probe(ctx context.Context, blob *Blob) (float64, error) {
	rc, err := blob.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	rs, ok := rc.(io.ReadSeeker)
	if !ok {
		return 0, errNotSeekable
	}

	info, err := mp4.Probe(rs)
	if err != nil {
		return 0, err
	}
	if info.Timescale == 0 {
		return 0, nil
	}
	return float64(info.Duration) / float64(info.Timescale), nil
}

// MaxDurationSeconds is the largest duration stored; videos.duration_seconds is an INTEGER column.
const MaxDurationSeconds = math.MaxInt32

// wholeSeconds rounds a probed duration; anything unusable becomes 0.
func wholeSeconds(seconds float64, err error) int {
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0
	}
	rounded := math.Round(seconds)
	if rounded > MaxDurationSeconds {
		return 0
	}
	return int(rounded)
}
