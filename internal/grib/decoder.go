package grib

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/ilias-t/griblet/pkg/logger"
)

// Decoder is the capability boundary to the external GRIB tools. One
// production implementation shells out to the ecCodes binaries; tests use
// canned fixtures so the transformation logic never needs the real tools.
type Decoder interface {
	// ListMessages returns every message in the file, numbered 1..N in the
	// order the decoder emits them.
	ListMessages(ctx context.Context, path string) ([]GridMessage, error)

	// DumpPoints returns the raw (lat, lon, value) triples for the message
	// with the given 1-based index.
	DumpPoints(ctx context.Context, path string, index int) ([]ScatteredPoint, error)
}

// Metadata keys requested from the listing tool. Order matters only for
// readability of the invocation; parsing is key-based.
const listKeys = "shortName,typeOfLevel,level,Ni,Nj," +
	"latitudeOfFirstGridPointInDegrees,longitudeOfFirstGridPointInDegrees," +
	"latitudeOfLastGridPointInDegrees,longitudeOfLastGridPointInDegrees," +
	"iDirectionIncrementInDegrees,jDirectionIncrementInDegrees," +
	"dataDate,dataTime,stepRange"

// ECCodesDecoder invokes the ecCodes command line tools (grib_ls for the
// metadata listing, grib_get_data for point dumps).
type ECCodesDecoder struct {
	listTool string
	dumpTool string
	timeout  time.Duration
	logger   *logger.Logger

	// Tool availability is probed once per process and cached.
	probeOnce sync.Once
	probeErr  error
}

// NewECCodesDecoder creates a decoder invoking the ecCodes tools. Empty tool
// paths fall back to the standard binary names resolved via PATH. A zero
// timeout disables the per-invocation deadline.
func NewECCodesDecoder(listTool, dumpTool string, timeout time.Duration, log *logger.Logger) *ECCodesDecoder {
	if listTool == "" {
		listTool = "grib_ls"
	}
	if dumpTool == "" {
		dumpTool = "grib_get_data"
	}
	return &ECCodesDecoder{
		listTool: listTool,
		dumpTool: dumpTool,
		timeout:  timeout,
		logger:   log.Named("grib-decoder"),
	}
}

// Available reports whether the external tools are runnable. The probe is a
// lightweight version invocation, performed once per process lifetime.
func (d *ECCodesDecoder) Available() error {
	d.probeOnce.Do(func() {
		if _, err := exec.LookPath(d.listTool); err != nil {
			d.probeErr = fmt.Errorf("%w: %v", ErrDecoderUnavailable, err)
			return
		}
		if _, err := exec.LookPath(d.dumpTool); err != nil {
			d.probeErr = fmt.Errorf("%w: %v", ErrDecoderUnavailable, err)
			return
		}
		// A listing tool that cannot even report its version is unusable.
		out, err := exec.Command(d.listTool, "-V").CombinedOutput()
		if err != nil {
			d.probeErr = fmt.Errorf("%w: %s: %v", ErrDecoderUnavailable, bytes.TrimSpace(out), err)
			return
		}
		d.logger.Info("GRIB decoder tools available",
			logger.String("version", string(bytes.TrimSpace(out))))
	})
	return d.probeErr
}

// ListMessages implements Decoder using grib_ls in JSON mode.
func (d *ECCodesDecoder) ListMessages(ctx context.Context, path string) ([]GridMessage, error) {
	if err := d.Available(); err != nil {
		return nil, err
	}

	stdout, stderr, err := d.run(ctx, d.listTool, "-j", "-p", listKeys, path)
	if err != nil {
		return nil, &DecodeError{Op: "list", Output: string(stderr), Err: err}
	}

	messages, err := parseListing(stdout)
	if err != nil {
		return nil, &DecodeError{Op: "list", Output: string(stderr), Err: err}
	}

	d.logger.Debug("Listed GRIB messages",
		logger.String("path", path),
		logger.Int("count", len(messages)))
	return messages, nil
}

// DumpPoints implements Decoder using grib_get_data filtered to one message.
func (d *ECCodesDecoder) DumpPoints(ctx context.Context, path string, index int) ([]ScatteredPoint, error) {
	if err := d.Available(); err != nil {
		return nil, err
	}

	where := fmt.Sprintf("count=%d", index)
	stdout, stderr, err := d.run(ctx, d.dumpTool, "-w", where, path)
	if err != nil {
		return nil, &DecodeError{Op: "dump", Output: string(stderr), Err: err}
	}

	points, skipped := parsePointDump(stdout)
	if skipped > 0 {
		d.logger.Debug("Skipped unparsable point-dump lines",
			logger.String("path", path),
			logger.Int("message", index),
			logger.Int("skipped", skipped))
	}
	return points, nil
}

// run executes one external invocation under the configured timeout. The
// child is killed when the deadline expires.
func (d *ECCodesDecoder) run(ctx context.Context, tool string, args ...string) (stdout, stderr []byte, err error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, tool, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	start := time.Now()
	err = cmd.Run()
	d.logger.Debug("External decoder invocation finished",
		logger.String("tool", tool),
		logger.Duration("duration", time.Since(start)),
		logger.Bool("ok", err == nil))

	if ctx.Err() == context.DeadlineExceeded {
		return nil, errBuf.Bytes(), fmt.Errorf("decoder timed out after %s", d.timeout)
	}
	return outBuf.Bytes(), errBuf.Bytes(), err
}
