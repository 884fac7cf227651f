package clock

import (
	"context"
	"errors"
	"time"

	"github.com/tnicklin/time_sync/store"
	"github.com/tnicklin/time_sync/timeutil"
	"go.uber.org/atomic"
)

// LoadResult tells a successful restore apart from "nothing saved yet".
type LoadResult int

const (
	// LoadFailed accompanies a non-nil error from Load.
	LoadFailed LoadResult = iota
	LoadRestored
	LoadMissing
)

func (r LoadResult) String() string {
	switch r {
	case LoadRestored:
		return "restored"
	case LoadMissing:
		return "missing"
	default:
		return "failed"
	}
}

// Virtual derives a user-adjustable projection of real time: real time plus
// a signed offset in whole seconds. The offset is never written back to the
// host clock.
//
// Adjust, Reset and Load mutate the offset; Now and Offset only read it and
// are safe to call from the display tick at any rate.
type Virtual struct {
	offset atomic.Int64
	logger Logger
}

// VirtualParams configures a Virtual clock.
type VirtualParams struct {
	Logger Logger
}

// NewVirtual creates a Virtual clock with a zero offset.
func NewVirtual(p VirtualParams) *Virtual {
	l := p.Logger
	if l == nil {
		l = nopLogger{}
	}
	return &Virtual{logger: l}
}

// Offset returns the current offset in seconds.
func (v *Virtual) Offset() int64 {
	return v.offset.Load()
}

// Now returns realNow shifted by the current offset. The shift is done on
// Unix seconds, so offsets beyond the range of time.Duration still apply.
func (v *Virtual) Now(realNow time.Time) time.Time {
	sec := realNow.Unix() + v.offset.Load()
	return time.Unix(sec, int64(realNow.Nanosecond())).In(realNow.Location())
}

// Adjust adds delta seconds to the offset and returns the new offset.
func (v *Virtual) Adjust(delta int64) int64 {
	next := v.offset.Add(delta)
	v.logger.InfoW("virtual time adjusted",
		"delta", timeutil.FormatDelta(delta),
		"offset", timeutil.FormatOffset(next),
	)
	return next
}

// Reset returns the virtual clock to system time.
func (v *Virtual) Reset() {
	v.offset.Store(0)
	v.logger.InfoW("virtual time reset to system time", "offset", timeutil.FormatOffset(0))
}

// Save persists the current offset.
func (v *Virtual) Save(ctx context.Context, st store.OffsetStore) error {
	off := v.offset.Load()
	if err := st.WriteOffset(ctx, off); err != nil {
		v.logger.ErrorW("failed to save virtual time settings", "error", err)
		return err
	}
	v.logger.InfoW("virtual time settings saved", "offset", timeutil.FormatOffset(off))
	return nil
}

// Load restores a previously saved offset. A store with nothing saved yields
// LoadMissing and a nil error, leaving the offset untouched. A malformed
// record yields a *store.ParseError.
func (v *Virtual) Load(ctx context.Context, st store.OffsetStore) (LoadResult, error) {
	off, err := st.ReadOffset(ctx)
	if errors.Is(err, store.ErrNotFound) {
		v.logger.WarnW("no saved virtual time settings found")
		return LoadMissing, nil
	}
	if err != nil {
		v.logger.ErrorW("failed to load virtual time settings", "error", err)
		return LoadFailed, err
	}

	v.offset.Store(off)
	v.logger.InfoW("virtual time settings loaded", "offset", timeutil.FormatOffset(off))
	return LoadRestored, nil
}
