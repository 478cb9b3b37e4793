package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"

	"smartmoney/shared"
)

const (
	// SQL statements.
	createSetupTableSQL    = "CREATE TABLE IF NOT EXISTS setup (id TEXT PRIMARY KEY, setupid TEXT, market TEXT, direction TEXT, session TEXT, entry REAL, stoploss REAL, takeprofit REAL, evidence TEXT, createdon INTEGER)"
	createMetadataTableSQL = "CREATE TABLE IF NOT EXISTS metadata (id TEXT PRIMARY KEY, total INTEGER, buys INTEGER, sells INTEGER, createdon INTEGER)"
	persistSetupSQL        = "INSERT INTO setup(id, setupid, market, direction, session, entry, stoploss, takeprofit, evidence, createdon) VALUES(?,?,?,?,?,?,?,?,?,?)"
	findMetadataSQL        = "SELECT * FROM metadata WHERE id = ?"
	updateMetadataSQL      = "UPDATE metadata SET total = total + 1, buys = buys + ?, sells = sells + ? WHERE id = ?"
	persistMetadataSQL     = "INSERT INTO metadata(id, total, buys, sells, createdon) VALUES(?,?,?,?,?)"
)

// SetupStorer defines the requirements for storing emitted setups.
type SetupStorer interface {
	// PersistSetup stores the provided setup to the database.
	PersistSetup(ctx context.Context, setup *shared.Setup) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the SetupStorer interface.
var _ SetupStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createSetupTableSQL},
		{SQL: createMetadataTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// generateMetadataID generates deterministic ids for metadata using the
// month, week and market of the provided time.
func generateMetadataID(currentTime time.Time, market string) string {
	month := currentTime.Month().String()
	week := currentTime.Day() / 7

	return fmt.Sprintf("%s-Week-%d-%s", month, week, market)
}

// PersistSetup stores the provided setup and updates its weekly alert
// metadata.
func (db *Database) PersistSetup(ctx context.Context, setup *shared.Setup) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistSetupSQL,
			PositionalParams: []any{uuid.NewString(), setup.ID, setup.Market,
				setup.Direction.String(), setup.Session, setup.Entry, setup.StopLoss,
				setup.TakeProfit, setup.Evidence.Summary(), setup.CreatedOn.Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}
	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("persisting setup %s: %d -> %s", setup.ID, idx, errStr)
	}

	var buys, sells int
	switch setup.Direction {
	case shared.Buy:
		buys++
	case shared.Sell:
		sells++
	}

	id := generateMetadataID(setup.CreatedOn.UTC(), setup.Market)
	queryResp, err := db.client.QuerySingle(ctx, findMetadataSQL, id)
	if err != nil {
		return err
	}

	exists := len(queryResp.GetQueryResultsAssoc()) > 0
	switch {
	case exists:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              updateMetadataSQL,
				PositionalParams: []any{buys, sells, id},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("updating metadata %s: %d -> %s", id, idx, errStr)
		}
	default:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              persistMetadataSQL,
				PositionalParams: []any{id, 1, buys, sells, setup.CreatedOn.Unix()},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("persisting metadata %s: %d -> %s", id, idx, errStr)
		}
	}

	return nil
}
