package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/gcp"
	"github.com/angelmondragon/clips-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errDatasetRequired   = errors.New("bigquery dataset is required")
	errNoTables          = errors.New("at least one bigquery table spec is required")
	errNotInitialized    = errors.New("bigquery client not initialized")
)

// TableSpec describes a table the client writes to. Schema, partitioning and
// clustering are only used when the table has to be created.
type TableSpec struct {
	Name           string
	Schema         bigquery.Schema
	PartitionField string
	Clustering     []string
}

// Client streams rows into the clips analytics dataset.
type Client struct {
	client     *bigquery.Client
	dataset    *bigquery.Dataset
	tables     map[string]TableSpec
	autoCreate bool
}

// NewClient connects to BigQuery and checks that the dataset and every table
// in specs exist. With cfg.AutoCreate a missing table is created from its
// spec instead of failing startup.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger, specs ...TableSpec) (*Client, error) {
	projectID := strings.TrimSpace(gcpCfg.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	tables, err := indexSpecs(specs)
	if err != nil {
		return nil, err
	}

	bq, err := bigquery.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{
		client:     bq,
		dataset:    bq.Dataset(datasetID),
		tables:     tables,
		autoCreate: cfg.AutoCreate,
	}
	if err := c.prepare(ctx, logg); err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": datasetID, "tables": len(tables)}), "bigquery client initialized")
	}
	return c, nil
}

func indexSpecs(specs []TableSpec) (map[string]TableSpec, error) {
	tables := make(map[string]TableSpec, len(specs))
	for _, spec := range specs {
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			continue
		}
		tables[spec.Name] = spec
	}
	if len(tables) == 0 {
		return nil, errNoTables
	}
	return tables, nil
}

func (c *Client) prepare(ctx context.Context, logg *logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}

	for name, spec := range c.tables {
		_, err := c.dataset.Table(name).Metadata(ctx)
		switch {
		case err == nil:
			continue
		case !isNotFound(err):
			return fmt.Errorf("checking table %q: %w", name, err)
		case !c.autoCreate || len(spec.Schema) == 0:
			return fmt.Errorf("table %q does not exist", name)
		}
		if err := c.dataset.Table(name).Create(ctx, tableMetadata(spec)); err != nil {
			return fmt.Errorf("creating table %q: %w", name, err)
		}
		if logg != nil {
			logg.Info(logg.WithField(ctx, "table", name), "bigquery table created")
		}
	}
	return nil
}

func tableMetadata(spec TableSpec) *bigquery.TableMetadata {
	meta := &bigquery.TableMetadata{Name: spec.Name, Schema: spec.Schema}
	if spec.PartitionField != "" {
		meta.TimePartitioning = &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: spec.PartitionField,
		}
	}
	if len(spec.Clustering) > 0 {
		meta.Clustering = &bigquery.Clustering{Fields: spec.Clustering}
	}
	return meta
}

// Ping re-checks that the dataset and tables are reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	for name := range c.tables {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return fmt.Errorf("checking table %q: %w", name, err)
		}
	}
	return nil
}

// InsertRows streams rows into one of the tables the client was built with.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	table = strings.TrimSpace(table)
	if _, ok := c.tables[table]; !ok {
		return fmt.Errorf("table %q is not registered with the bigquery client", table)
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
