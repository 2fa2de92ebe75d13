package jobs

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileforge/internal/models"
	"fileforge/internal/store"
)

func TestDispatchCreatesRecordsPerFile(t *testing.T) {
	proc := &scriptedProcessor{}
	runner, dispatcher, s, _ := newTestRunner(t, proc)

	receipt, err := dispatcher.Dispatch(context.Background(), "user-1", testFiles(3),
		ConversionOptions{TargetFormat: "png"})
	require.NoError(t, err)
	require.Len(t, receipt.Jobs, 3)
	require.NotEmpty(t, receipt.BatchID)

	for _, ref := range receipt.Jobs {
		assert.Equal(t, receipt.BatchID+"-"+ref.HistoryID, ref.JobID)

		history, err := s.GetHistory(context.Background(), ref.HistoryID)
		require.NoError(t, err)
		assert.Equal(t, "user-1", history.UserID)
		assert.Equal(t, models.OperationConversion, history.OperationType)
		assert.Contains(t, history.OperationDetails, `"targetFormat":"png"`)
		assert.Contains(t, history.OperationDetails, `"operation":"conversion"`)

		job, err := s.GetJob(context.Background(), ref.JobID)
		require.NoError(t, err)
		assert.Equal(t, ref.HistoryID, job.FileHistoryID)
	}

	runner.WaitIdle()
}

func TestDispatchRejectsInvalidOptionsBeforeWriting(t *testing.T) {
	_, dispatcher, s, _ := newTestRunner(t, &scriptedProcessor{})

	_, err := dispatcher.Dispatch(context.Background(), "", testFiles(2),
		ConversionOptions{TargetFormat: "exe"})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "targetFormat", verr.Field)

	records, err := s.ListHistory(context.Background(), store.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDispatchRejectsEmptyBatch(t *testing.T) {
	_, dispatcher, _, _ := newTestRunner(t, &scriptedProcessor{})

	_, err := dispatcher.Dispatch(context.Background(), "", nil,
		CompressionOptions{Level: "light"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "files", verr.Field)
}

func TestOptionValidation(t *testing.T) {
	cases := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{"valid conversion", ConversionOptions{TargetFormat: "webp"}, ""},
		{"uppercase format accepted", ConversionOptions{TargetFormat: "PNG"}, ""},
		{"missing format", ConversionOptions{}, "targetFormat"},
		{"unknown format", ConversionOptions{TargetFormat: "psd"}, "targetFormat"},
		{"valid compression", CompressionOptions{Level: "extreme"}, ""},
		{"unknown level", CompressionOptions{Level: "maximum"}, "compressionLevel"},
		{"valid extraction", ExtractionOptions{Mode: "hybrid", Language: "ja"}, ""},
		{"unknown mode", ExtractionOptions{Mode: "magic"}, "extractionMode"},
		{"unknown language", ExtractionOptions{Mode: "auto", Language: "xx"}, "language"},
		{"valid archive", ArchiveOptions{ExtractPath: "docs"}, ""},
		{"traversal extract path", ArchiveOptions{ExtractPath: "../../etc"}, "extractPath"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantErr, verr.Field)
		})
	}
}

func TestDetailsBlobIsTagged(t *testing.T) {
	details, err := ExtractionOptions{Mode: "auto", IncludeMetadata: true}.Details()
	require.NoError(t, err)
	require.True(t, strings.Contains(details, `"operation":"extraction"`))

	op, fields, err := DecodeDetails(details)
	require.NoError(t, err)
	assert.Equal(t, models.OperationExtraction, op)
	assert.Equal(t, "auto", fields["language"], "language defaults to auto")
	assert.Equal(t, true, fields["includeMetadata"])
}
