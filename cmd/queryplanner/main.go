// Command queryplanner is a demo server wiring the query planner behind a
// graphql-go/graphql schema (spec §8's Account/HistoricalBalance example):
// the Schema Loader and API Schema Generator are out of scope, so the
// model and the hand-assembled GraphQL schema below are demo fixtures, not
// a general schema-from-database mechanism.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencrud/queryplanner/graphqlio"
	"github.com/opencrud/queryplanner/internal/codec"
	"github.com/opencrud/queryplanner/internal/config"
	"github.com/opencrud/queryplanner/internal/dbconn"
	"github.com/opencrud/queryplanner/internal/model"
	"github.com/opencrud/queryplanner/internal/planner"
	"github.com/opencrud/queryplanner/internal/sqlbuild"
	"github.com/opencrud/queryplanner/logger"
)

// demoModel builds the Account/HistoricalBalance model from spec §8's
// worked example: Account{id, wallet: String!, balance: Int!, history:
// [HistoricalBalance!] @derivedFrom(field: "account")}, HistoricalBalance{
// id, account: Account!, balance: Int!}.
func demoModel() (*model.Model, error) {
	return model.New([]*model.Type{
		{
			Name: "Account",
			Kind: model.KindEntity,
			Properties: map[string]*model.Property{
				"wallet":  {Name: "wallet", Type: &model.PropertyType{Kind: model.PTScalar, Name: "String"}},
				"balance": {Name: "balance", Type: &model.PropertyType{Kind: model.PTScalar, Name: "Int"}},
				"history": {
					Name:     "history",
					Nullable: true,
					Type: &model.PropertyType{
						Kind:   model.PTListRelation,
						Entity: "HistoricalBalance",
						Field:  "account",
					},
				},
			},
		},
		{
			Name: "HistoricalBalance",
			Kind: model.KindEntity,
			Properties: map[string]*model.Property{
				"account": {Name: "account", Type: &model.PropertyType{Kind: model.PTFK, Entity: "Account"}},
				"balance": {Name: "balance", Type: &model.PropertyType{Kind: model.PTScalar, Name: "Int"}},
			},
		},
	})
}

// historicalBalanceType and accountType are mutually recursive (Account.history
// -> HistoricalBalance.account -> Account), so the field maps are populated
// after both graphql.Object values exist, mirroring how the teacher's own
// dynamic schema generators in the retrieved pack break FK cycles.
func buildSchema(m *model.Model, exec graphqlio.Executor) (graphql.Schema, error) {
	accountType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Account",
		Fields: graphql.Fields{},
	})
	historicalBalanceType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "HistoricalBalance",
		Fields: graphql.Fields{},
	})

	accountType.AddFieldConfig("id", &graphql.Field{Type: graphql.NewNonNull(graphql.ID)})
	accountType.AddFieldConfig("wallet", &graphql.Field{Type: graphql.NewNonNull(graphql.String)})
	accountType.AddFieldConfig("balance", &graphql.Field{Type: graphql.NewNonNull(graphql.Int)})
	accountType.AddFieldConfig("history", &graphql.Field{
		Type: graphql.NewList(graphql.NewNonNull(historicalBalanceType)),
		Args: graphql.FieldConfigArgument{
			"where":   &graphql.ArgumentConfig{Type: graphqlio.JSONScalar},
			"orderBy": &graphql.ArgumentConfig{Type: graphqlio.JSONScalar},
			"offset":  &graphql.ArgumentConfig{Type: graphql.Int},
			"limit":   &graphql.ArgumentConfig{Type: graphql.Int},
		},
		// No Resolve: the planner has already shaped "history" into the
		// parent row as a nested slice (spec §4.4.5); graphql-go's default
		// resolver reads it straight off the map.
	})

	historicalBalanceType.AddFieldConfig("id", &graphql.Field{Type: graphql.NewNonNull(graphql.ID)})
	historicalBalanceType.AddFieldConfig("balance", &graphql.Field{Type: graphql.NewNonNull(graphql.Int)})
	historicalBalanceType.AddFieldConfig("account", &graphql.Field{Type: graphql.NewNonNull(accountType)})

	queryFields := graphql.Fields{
		"accounts": &graphql.Field{
			Type: graphql.NewList(graphql.NewNonNull(accountType)),
			Args: graphql.FieldConfigArgument{
				"where":   &graphql.ArgumentConfig{Type: graphqlio.JSONScalar},
				"orderBy": &graphql.ArgumentConfig{Type: graphqlio.JSONScalar},
				"offset":  &graphql.ArgumentConfig{Type: graphql.Int},
				"limit":   &graphql.ArgumentConfig{Type: graphql.Int},
			},
			Resolve: graphqlio.SelectResolver(m, "Account", exec),
		},
		"historicalBalances": &graphql.Field{
			Type: graphql.NewList(graphql.NewNonNull(historicalBalanceType)),
			Args: graphql.FieldConfigArgument{
				"where":   &graphql.ArgumentConfig{Type: graphqlio.JSONScalar},
				"orderBy": &graphql.ArgumentConfig{Type: graphqlio.JSONScalar},
				"offset":  &graphql.ArgumentConfig{Type: graphql.Int},
				"limit":   &graphql.ArgumentConfig{Type: graphql.Int},
			},
			Resolve: graphqlio.SelectResolver(m, "HistoricalBalance", exec),
		},
		"accountsCount": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Int),
			Args: graphql.FieldConfigArgument{
				"where": &graphql.ArgumentConfig{Type: graphqlio.JSONScalar},
			},
			Resolve: graphqlio.SelectCountResolver("Account", exec),
		},
	}

	schemaConfig := graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queryFields}),
	}
	return graphql.NewSchema(schemaConfig)
}

// plannerKey is the request-context key carrying the one *planner.Planner
// built for the current request's transaction (spec §5: one planner per
// request, bound to one serializable read-only transaction).
type plannerKey struct{}

// txExecutor returns the graphqlio.Executor every resolver uses to reach
// the current request's Planner, pulling it off p.Context where
// withRequestTransaction stashed it.
func txExecutor() graphqlio.Executor {
	return func(p graphql.ResolveParams) (*planner.Planner, error) {
		pl, ok := p.Context.Value(plannerKey{}).(*planner.Planner)
		if !ok {
			return nil, fmt.Errorf("queryplanner: no planner bound to this request")
		}
		return pl, nil
	}
}

// withRequestTransaction opens one serializable read-only transaction per
// request, builds a Planner bound to it, and commits (or rolls back on
// panic/error) once next has returned (spec §5 "each GraphQL request is
// handled inside one serializable read-only transaction"). queryTimeout
// bounds the whole request, including every query the planner issues
// against the transaction (config: QUERY_TIMEOUT_MS); zero disables it.
func withRequestTransaction(db *dbconn.DB, m *model.Model, registry *codec.Registry, quoter sqlbuild.IdentifierQuoter, log logger.Logger, queryTimeout time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqCtx := r.Context()
		if queryTimeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(reqCtx, queryTimeout)
			defer cancel()
		}

		ctx, tx, err := db.WithTx(reqCtx)
		if err != nil {
			log.Error("queryplanner: opening transaction", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		// Rollback after a successful Commit is a no-op; otherwise it
		// releases the transaction when next panics.
		defer func() { _ = tx.Rollback(reqCtx) }()

		pl := planner.New(m, registry, quoter, db, log)
		ctx = context.WithValue(ctx, plannerKey{}, pl)

		next.ServeHTTP(w, r.WithContext(ctx))

		if err := tx.Commit(reqCtx); err != nil {
			log.Error("queryplanner: committing transaction", "err", err)
		}
	})
}

func main() {
	log := logger.New()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Error("queryplanner: config", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Error("queryplanner: parsing database url", "err", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("queryplanner: connecting to database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	db := dbconn.New(pool)
	m, err := demoModel()
	if err != nil {
		log.Error("queryplanner: building model", "err", err)
		os.Exit(1)
	}
	registry := codec.NewRegistry()
	quoter := sqlbuild.PostgresQuoter{}

	schema, err := buildSchema(m, txExecutor())
	if err != nil {
		log.Error("queryplanner: building schema", "err", err)
		os.Exit(1)
	}

	gqlHandler := handler.New(&handler.Config{
		Schema:     &schema,
		Pretty:     true,
		Playground: true,
	})

	queryTimeout := time.Duration(cfg.QueryTimeoutMS) * time.Millisecond

	mux := http.NewServeMux()
	mux.Handle("/graphql", withRequestTransaction(db, m, registry, quoter, log, queryTimeout, gqlHandler))

	log.Info("queryplanner: listening", "addr", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, mux); err != nil {
		log.Error("queryplanner: server exited", "err", err)
		os.Exit(1)
	}
}
