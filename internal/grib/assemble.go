package grib

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ilias-t/griblet/internal/observability"
	"github.com/ilias-t/griblet/pkg/logger"
)

// refTimeLayout is the reference-time format the renderer expects in headers.
const refTimeLayout = "2006-01-02T15:04:05.000Z"

// Parser runs the full transformation pipeline: metadata listing, component
// matching, per-hour extraction and reconstruction, and series assembly.
type Parser struct {
	decoder Decoder
	limiter *Limiter
	metrics *observability.Metrics
	logger  *logger.Logger
	tempDir string
}

// NewParser creates a parser over the given decoder. The limiter bounds
// ad-hoc (buffer-based) parses only; file parses initiated by the cache go
// through unguarded since the caller already sits behind the limiter or is a
// background computation.
func NewParser(decoder Decoder, limiter *Limiter, metrics *observability.Metrics, log *logger.Logger) *Parser {
	return &Parser{
		decoder: decoder,
		limiter: limiter,
		metrics: metrics,
		logger:  log.Named("grib-parser"),
		tempDir: os.TempDir(),
	}
}

// ParseFile transforms the GRIB file at path into a time-ordered velocity
// series. A non-nil refTime overrides the reference time derived from the
// first message's date/time fields.
func (p *Parser) ParseFile(ctx context.Context, path string, refTime *time.Time) (*MultiTimeVelocityData, error) {
	start := time.Now()

	messages, err := p.decoder.ListMessages(ctx, path)
	if err != nil {
		p.metrics.DecodeFailures.Inc()
		return nil, err
	}
	if len(messages) == 0 {
		p.metrics.DecodeFailures.Inc()
		return nil, &DecodeError{Op: "list", Err: fmt.Errorf("file contains no messages")}
	}

	east, north, err := matchComponents(messages)
	if err != nil {
		return nil, err
	}

	ref := messages[0].ReferenceTime()
	if refTime != nil {
		ref = refTime.UTC()
	}

	result := &MultiTimeVelocityData{RefTime: ref}
	for _, hour := range east.Hours() {
		uMsg := east[hour]
		vMsg, ok := north[hour]
		if !ok {
			// A usable series can still result from the remaining hours.
			p.logger.Warn("Skipping forecast hour without northward component",
				logger.String("path", path),
				logger.Int("forecast_hour", hour))
			continue
		}

		step, err := p.assembleStep(ctx, path, ref, hour, uMsg, vMsg)
		if err != nil {
			return nil, err
		}
		result.TimeSteps = append(result.TimeSteps, *step)
	}

	if len(result.TimeSteps) == 0 {
		return nil, ErrEmptySeries
	}

	p.metrics.ParsesCompleted.Inc()
	p.metrics.ParseDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("Assembled velocity time series",
		logger.String("path", path),
		logger.Int("time_steps", len(result.TimeSteps)),
		logger.Time("ref_time", ref),
		logger.Duration("duration", time.Since(start)))
	return result, nil
}

// ParseBuffer stages an in-memory upload to a temporary file and parses it
// under the concurrency governor. The temporary file is removed on every exit
// path, including governor rejection.
func (p *Parser) ParseBuffer(ctx context.Context, data []byte, refTime *time.Time) (*MultiTimeVelocityData, error) {
	tmp, err := os.CreateTemp(p.tempDir, "griblet-upload-*.grib2")
	if err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	tmpPath := tmp.Name()
	// Cleanup is best effort: a leftover temp file does not affect the
	// correctness of the returned data.
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}

	release, err := p.limiter.Acquire()
	if err != nil {
		p.metrics.ParsesRejected.Inc()
		return nil, err
	}
	defer release()

	return p.ParseFile(ctx, tmpPath, refTime)
}

// assembleStep extracts and reconstructs both wind components for one
// forecast hour. The two component decodes are independent and run
// concurrently.
func (p *Parser) assembleStep(ctx context.Context, path string, ref time.Time, hour int, uMsg, vMsg GridMessage) (*TimeStep, error) {
	var uComp, vComp VelocityComponent

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		comp, err := p.buildComponent(gctx, path, ref, uMsg, parameterNumberUWind, "U-component_of_wind")
		if err != nil {
			return err
		}
		uComp = *comp
		return nil
	})
	g.Go(func() error {
		comp, err := p.buildComponent(gctx, path, ref, vMsg, parameterNumberVWind, "V-component_of_wind")
		if err != nil {
			return err
		}
		vComp = *comp
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &TimeStep{
		ForecastHour: hour,
		ValidTime:    ref.Add(time.Duration(hour) * time.Hour),
		Data:         VelocityData{uComp, vComp},
	}, nil
}

// buildComponent runs extraction and reconstruction for one message and
// wraps the dense grid in its renderer header.
func (p *Parser) buildComponent(ctx context.Context, path string, ref time.Time, msg GridMessage, paramNumber int, paramName string) (*VelocityComponent, error) {
	points, err := p.decoder.DumpPoints(ctx, path, msg.Index)
	if err != nil {
		p.metrics.DecodeFailures.Inc()
		return nil, err
	}

	data, stats := ReconstructGrid(points, msg.Nx, msg.Ny)
	p.metrics.PointsOutOfRange.Add(float64(stats.OutOfRange))
	p.metrics.CellsUnfilled.Add(float64(stats.Unfilled))
	if stats.OutOfRange > 0 || stats.Unfilled > 0 {
		p.logger.Debug("Grid reconstructed with gaps",
			logger.String("short_name", msg.ShortName),
			logger.Int("message", msg.Index),
			logger.Int("placed", stats.Placed),
			logger.Int("out_of_range", stats.OutOfRange),
			logger.Int("unfilled", stats.Unfilled))
	}

	return &VelocityComponent{
		Header: buildHeader(msg, ref, paramNumber, paramName),
		Data:   data,
	}, nil
}

// buildHeader normalizes the message's corner coordinates to the renderer's
// north/south/west/east convention (la1 >= la2, lo1 <= lo2) regardless of the
// scan direction the source message declared.
func buildHeader(msg GridMessage, ref time.Time, paramNumber int, paramName string) VelocityHeader {
	la1, la2 := msg.FirstLat, msg.LastLat
	if la2 > la1 {
		la1, la2 = la2, la1
	}

	lo1 := NormalizeLongitude(msg.FirstLon)
	lo2 := NormalizeLongitude(msg.LastLon)
	if lo1 > lo2 {
		lo1, lo2 = lo2, lo1
	}

	return VelocityHeader{
		ParameterCategory:   parameterCategoryWind,
		ParameterNumber:     paramNumber,
		ParameterUnit:       "m.s-1",
		ParameterNumberName: paramName,
		Nx:                  msg.Nx,
		Ny:                  msg.Ny,
		La1:                 la1,
		Lo1:                 lo1,
		La2:                 la2,
		Lo2:                 lo2,
		Dx:                  msg.LonIncrement,
		Dy:                  msg.LatIncrement,
		RefTime:             ref.UTC().Format(refTimeLayout),
		ForecastTime:        msg.ForecastHour,
		NumberPoints:        msg.Nx * msg.Ny,
	}
}
