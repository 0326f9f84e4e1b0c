//go:build integration

package catalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const skipIntegrationTests = "CATALOG_SKIP_INTEGRATION_TESTS"

type PostgresStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
	store     *PostgresStore
	logs      zapcore.Core
	observed  *observer.ObservedLogs
}

func TestPostgresStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("skipping integration tests, " + skipIntegrationTests + " is set")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logs, s.observed = observer.New(zap.InfoLevel)

	var err error
	s.container, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("catalog"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(s.T(), err)

	dsn, err := s.container.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.db, err = OpenPostgres(s.ctx, dsn)
	require.NoError(s.T(), err)

	s.store = NewPostgresStore(s.db, zap.New(s.logs))
	require.NoError(s.T(), s.store.EnsureSchema(s.ctx))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, "TRUNCATE TABLE products RESTART IDENTITY")
	require.NoError(s.T(), err)
	s.observed.TakeAll()
}

func (s *PostgresStoreSuite) TestCreateGetAndDuplicate() {
	p, err := s.store.Create(s.ctx, sample("A1"))
	s.Require().NoError(err)
	s.Equal(int64(1), p.ID)
	s.Equal("10", p.Price.String())

	got, err := s.store.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("A1", got.Code)
	s.True(got.Stock.Equal(AmountFromString("5")))

	_, err = s.store.Create(s.ctx, sample("A1"))
	s.ErrorIs(err, ErrDuplicateCode)

	_, err = s.store.Create(s.ctx, NewProduct{Code: "x"})
	s.ErrorIs(err, ErrInvalidProduct)

	s.Equal(1, s.observed.FilterMessage("product rejected: duplicate code").Len())
	s.Equal(1, s.observed.FilterMessage("product rejected").Len())

	items, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(items, 1)
}

func (s *PostgresStoreSuite) TestUpdateAndDelete() {
	_, err := s.store.Create(s.ctx, sample("A"))
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, sample("B"))
	s.Require().NoError(err)

	price := AmountFromInt(20)
	p, err := s.store.Update(s.ctx, 1, Patch{Price: &price})
	s.Require().NoError(err)
	s.True(p.Price.Equal(price))
	s.Equal("A", p.Code)

	code := "B"
	_, err = s.store.Update(s.ctx, 1, Patch{Code: &code})
	s.ErrorIs(err, ErrDuplicateCode)

	_, err = s.store.Update(s.ctx, 99, Patch{Price: &price})
	s.ErrorIs(err, ErrNotFound)

	s.Require().NoError(s.store.Delete(s.ctx, 1))
	s.ErrorIs(s.store.Delete(s.ctx, 1), ErrNotFound)

	_, err = s.store.Get(s.ctx, 1)
	s.ErrorIs(err, ErrNotFound)

	s.Equal(1, s.observed.FilterMessage("update: product not found").Len())
	s.Equal(1, s.observed.FilterMessage("delete: product not found").Len())
	s.Equal(1, s.observed.FilterMessage("update rejected: duplicate code").Len())

	p, err = s.store.Create(s.ctx, sample("C"))
	s.Require().NoError(err)
	s.Equal(int64(3), p.ID)
}
