package http_server

import (
	"context"
	"net/http"
	"time"

	"github.com/danthegoodman1/icebucket/config"
	"github.com/danthegoodman1/icebucket/runner"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/rs/zerolog"
)

type (
	// RunReqBody overrides the server defaults for one run. Bounds are checked
	// by the run itself so a bad count comes back as a config error.
	RunReqBody struct {
		TableName      *string `json:"table_name" validate:"omitempty,min=1,max=128"`
		RowCount       *int32  `json:"row_count"`
		KeyCardinality *int32  `json:"key_cardinality"`
		BucketCount    *int32  `json:"bucket_count"`
		Tolerance      *int32  `json:"tolerance"`
		SampleKey      *string `json:"sample_key"`
		SampleLimit    *int32  `json:"sample_limit"`
		// How many seconds before the run will time out.
		//
		// Default `60`.
		MaxRuntimeSec *int64 `json:"max_runtime_sec" validate:"omitempty,gt=0"`
	}
)

func (b RunReqBody) apply(defaults config.RunConfig) config.RunConfig {
	cfg := defaults
	cfg.TableName = utils.Deref(b.TableName, cfg.TableName)
	cfg.RowCount = utils.Deref(b.RowCount, cfg.RowCount)
	cfg.KeyCardinality = utils.Deref(b.KeyCardinality, cfg.KeyCardinality)
	cfg.BucketCount = utils.Deref(b.BucketCount, cfg.BucketCount)
	cfg.Tolerance = utils.Deref(b.Tolerance, cfg.Tolerance)
	cfg.SampleKey = utils.Deref(b.SampleKey, cfg.SampleKey)
	cfg.SampleLimit = utils.Deref(b.SampleLimit, cfg.SampleLimit)
	return cfg
}

func (s *HTTPServer) RunHandler(c *CustomContext) error {
	var reqBody RunReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second*time.Duration(utils.Deref(reqBody.MaxRuntimeSec, 60)))
	defer cancel()

	logger := zerolog.Ctx(ctx)
	cfg := reqBody.apply(s.Defaults)

	s.runMu.Lock()
	defer s.runMu.Unlock()

	r, err := runner.Run(ctx, cfg, s.Warehouse)
	if err != nil {
		return c.RunError(err, "error running verification")
	}

	if s.Publisher != nil {
		if err := s.Publisher.Publish(ctx, r); err != nil {
			// the run itself passed, a lost report is only logged
			logger.Error().Err(err).Str("runID", r.RunID).Msg("error publishing report")
		}
	}

	return c.JSON(http.StatusOK, r)
}
