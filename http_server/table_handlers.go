package http_server

import (
	"net/http"
	"strconv"

	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/danthegoodman1/icebucket/verifier"
)

type (
	DistributionResponse struct {
		Table string `json:"table"`
		By    string `json:"by"`
		// Counts is keyed by partition key or bucket id
		Counts any   `json:"counts"`
		Total  int64 `json:"total"`
	}

	SampleResponse struct {
		Table string      `json:"table"`
		Key   string      `json:"key"`
		Limit int32       `json:"limit"`
		Rows  []table.Row `json:"rows"`
	}
)

const defaultSampleLimit = 5

func (s *HTTPServer) DistributionHandler(c *CustomContext) error {
	tableName := c.Param("table")
	res := DistributionResponse{Table: tableName, By: c.QueryParam("by")}
	if res.By == "" {
		res.By = "key"
	}

	ctx := c.Request().Context()
	switch res.By {
	case "key":
		counts, err := s.Warehouse.CountByPartitionKey(ctx, tableName)
		if err != nil {
			return c.RunError(err, "error counting by partition key")
		}
		res.Total = utils.SumValues(counts)
		res.Counts = counts
	case "bucket":
		counts, err := s.Warehouse.CountByBucket(ctx, tableName)
		if err != nil {
			return c.RunError(err, "error counting by bucket")
		}
		res.Total = utils.SumValues(counts)
		res.Counts = counts
	default:
		return c.String(http.StatusBadRequest, "by must be key or bucket")
	}

	return c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) SampleHandler(c *CustomContext) error {
	tableName := c.Param("table")
	key := c.QueryParam("key")
	if key == "" {
		return c.String(http.StatusBadRequest, "key is required")
	}
	limit := int64(defaultSampleLimit)
	if raw := c.QueryParam("limit"); raw != "" {
		var err error
		limit, err = strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return c.String(http.StatusBadRequest, "limit must be an integer")
		}
	}

	rows, err := verifier.Sample(c.Request().Context(), s.Warehouse, tableName, key, int32(limit))
	if err != nil {
		return c.RunError(err, "error sampling table")
	}

	return c.JSON(http.StatusOK, SampleResponse{
		Table: tableName,
		Key:   key,
		Limit: int32(limit),
		Rows:  rows,
	})
}
