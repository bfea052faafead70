package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

// ImportInput is the input for the import workflow. Data is the raw file.
type ImportInput struct {
	Format string
	Data   []byte
	Name   string
}

// ImportOutput reports the saved route and what decimation did.
type ImportOutput struct {
	RouteID        string
	OriginalPoints int
	KeptPoints     int
	Decimated      bool
}

// ImportWorkflow parses an uploaded track, decimates it when it is large
// and saves it as a new route. Nothing is written before the save, so a
// failed save leaves nothing to undo.
func ImportWorkflow(ctx workflow.Context, input ImportInput) (*ImportOutput, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting import workflow", "format", input.Format, "bytes", len(input.Data))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeMalformedTrack, ErrTypeUnsupportedFormat},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Parse
	var track domain.Track
	if err := workflow.ExecuteActivity(ctx, "ParseTrack", input.Format, input.Data).Get(ctx, &track); err != nil {
		return nil, err
	}
	if input.Name != "" {
		track.Name = input.Name
	}

	// Step 2: Decimate
	var res domain.ImportResult
	if err := workflow.ExecuteActivity(ctx, "DecimateTrack", track).Get(ctx, &res); err != nil {
		return nil, err
	}

	// Step 3: Save
	var routeID string
	if err := workflow.ExecuteActivity(ctx, "SaveRoute", res.Track).Get(ctx, &routeID); err != nil {
		return nil, err
	}

	logger.Info("Track imported", "routeID", routeID, "kept", res.KeptPoints)
	return &ImportOutput{
		RouteID:        routeID,
		OriginalPoints: res.OriginalPoints,
		KeptPoints:     res.KeptPoints,
		Decimated:      res.Decimated,
	}, nil
}
