package grib

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilias-t/griblet/pkg/logger"
)

func TestECCodesDecoder_UnavailableTools(t *testing.T) {
	decoder := NewECCodesDecoder("definitely-not-grib-ls", "definitely-not-grib-get-data", 0, logger.NewNop())

	err := decoder.Available()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecoderUnavailable)

	// Every operation reports the same condition instead of attempting to run.
	_, err = decoder.ListMessages(context.Background(), "test.grib2")
	assert.ErrorIs(t, err, ErrDecoderUnavailable)

	_, err = decoder.DumpPoints(context.Background(), "test.grib2", 1)
	assert.ErrorIs(t, err, ErrDecoderUnavailable)
}

func TestECCodesDecoder_DefaultToolNames(t *testing.T) {
	decoder := NewECCodesDecoder("", "", 0, logger.NewNop())
	assert.Equal(t, "grib_ls", decoder.listTool)
	assert.Equal(t, "grib_get_data", decoder.dumpTool)
}
