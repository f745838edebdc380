// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Department of Linguistics,
// Faculty of Arts, Charles University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/czcorpus/intentio/cnf"
	"github.com/czcorpus/intentio/dataset"
	"github.com/czcorpus/intentio/describe"
	"github.com/czcorpus/intentio/iql"
	"github.com/czcorpus/intentio/predict"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type service interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
}

// ----------------------

func getRequestOrigin(ctx *gin.Context) string {
	currOrigin, ok := ctx.Request.Header["Origin"]
	if ok {
		return currOrigin[0]
	}
	return ""
}

func CORSMiddleware(conf *cnf.Conf) gin.HandlerFunc {
	return func(ctx *gin.Context) {

		var allowedOrigin string
		currOrigin := getRequestOrigin(ctx)
		for _, origin := range conf.CorsAllowedOrigins {
			if currOrigin == origin {
				allowedOrigin = origin
				break
			}
		}
		if allowedOrigin != "" {
			ctx.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			ctx.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			ctx.Writer.Header().Set(
				"Access-Control-Allow-Headers",
				"Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With",
			)
			ctx.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		}

		if ctx.Request.Method == "OPTIONS" {
			ctx.AbortWithStatus(204)
			return
		}
		ctx.Next()
	}
}

// ------

type analysisRequest struct {
	Statement   string `json:"statement"`
	ExecutionID string `json:"executionId"`
	KeepFilters *bool  `json:"keepFilters"`
}

type describeResponse struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

type predictResponse struct {
	ExecutionID string             `json:"executionId,omitempty"`
	Statistics  map[string]float64 `json:"statistics"`
	Predictions []map[string]any   `json:"predictions"`
	Accuracy    []map[string]any   `json:"accuracy"`
}

// drillSession pairs the cross-call engine state with the previous
// statement of one executionId. The session object is single-writer;
// lock spans parse (which reads prev) and execution.
type drillSession struct {
	lock sync.Mutex
	sess *describe.Session
	prev *iql.Statement
}

// -----

type apiServer struct {
	conf     *cnf.Conf
	server   *http.Server
	catalog  *dataset.Catalog
	engine   *describe.Engine
	runner   *predict.Runner
	sessions map[string]*drillSession
	sessLock sync.Mutex
}

func (api *apiServer) session(executionID string) *drillSession {
	api.sessLock.Lock()
	defer api.sessLock.Unlock()
	ans, ok := api.sessions[executionID]
	if !ok {
		ans = &drillSession{sess: describe.NewSession()}
		api.sessions[executionID] = ans
	}
	return ans
}

func statementErrStatus(err error) int {
	var syntaxErr *iql.SyntaxError
	var schemaErr *iql.SchemaError
	var describeErr *iql.DescribeError
	var modelErr *iql.ModelSelectionError
	var dataErr *iql.InsufficientDataError
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &describeErr), errors.As(err, &modelErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &schemaErr):
		return http.StatusNotFound
	case errors.As(err, &dataErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (api *apiServer) handleAnalysis(ctx *gin.Context) {
	var req analysisRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusBadRequest)
		return
	}
	keepFilters := true
	if req.KeepFilters != nil {
		keepFilters = *req.KeepFilters
	}

	var ds *drillSession
	if req.ExecutionID != "" {
		ds = api.session(req.ExecutionID)

	} else {
		ds = &drillSession{sess: describe.NewSession()}
	}
	ds.lock.Lock()
	defer ds.lock.Unlock()

	var stmt *iql.Statement
	var err error
	if req.ExecutionID != "" {
		stmt, err = iql.ParseWith(ds.prev, req.Statement, keepFilters, api.catalog)
		var describeErr *iql.DescribeError
		if errors.As(err, &describeErr) {
			// predict statements parse standalone
			stmt, err = iql.Parse(req.Statement, api.catalog)
		}

	} else {
		stmt, err = iql.Parse(req.Statement, api.catalog)
	}
	if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, statementErrStatus(err))
		return
	}

	if stmt.Kind == iql.KindPredict {
		res, err := api.runner.Execute(stmt)
		if err != nil {
			uniresp.RespondWithErrorJSON(ctx, err, statementErrStatus(err))
			return
		}
		uniresp.WriteJSONResponse(ctx.Writer, predictResponse{
			ExecutionID: res.ExecutionID,
			Statistics:  res.Statistics,
			Predictions: res.Predictions.Records(),
			Accuracy:    res.Accuracy.Records(),
		})
		return
	}

	tbl, err := api.engine.Execute(ds.sess, stmt)
	if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, statementErrStatus(err))
		return
	}
	ds.prev = stmt
	uniresp.WriteJSONResponse(ctx.Writer, describeResponse{
		Columns: tbl.ColumnNames(),
		Rows:    tbl.Records(),
	})
}

func (api *apiServer) handleDatasets(ctx *gin.Context) {
	uniresp.WriteJSONResponse(ctx.Writer, map[string]any{
		"datasets": api.catalog.Names(),
	})
}

func (api *apiServer) handleResetSession(ctx *gin.Context) {
	executionID := ctx.Param("executionId")
	api.sessLock.Lock()
	delete(api.sessions, executionID)
	api.sessLock.Unlock()
	uniresp.WriteJSONResponse(ctx.Writer, map[string]any{"ok": true})
}

func (api *apiServer) Start(ctx context.Context) {
	if !api.conf.Logging.Level.IsDebugMode() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logging.GinMiddleware())
	engine.Use(uniresp.AlwaysJSONContentType())
	engine.Use(CORSMiddleware(api.conf))
	engine.NoMethod(uniresp.NoMethodHandler)
	engine.NoRoute(uniresp.NotFoundHandler)

	engine.POST("/analysis", api.handleAnalysis)
	engine.GET("/datasets", api.handleDatasets)
	engine.DELETE("/session/:executionId", api.handleResetSession)

	log.Info().Msgf("starting to listen at %s:%d", api.conf.ListenAddress, api.conf.ListenPort)
	api.server = &http.Server{
		Handler:      engine,
		Addr:         fmt.Sprintf("%s:%d", api.conf.ListenAddress, api.conf.ListenPort),
		WriteTimeout: time.Duration(api.conf.ServerWriteTimeoutSecs) * time.Second,
		ReadTimeout:  time.Duration(api.conf.ServerReadTimeoutSecs) * time.Second,
	}
	go func() {
		if err := api.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()
}

func (api *apiServer) Stop(ctx context.Context) error {
	log.Warn().Msg("shutting down Intentio HTTP API server")
	return api.server.Shutdown(ctx)
}

// -------------------------

func runAPIServer(
	ctx context.Context,
	conf *cnf.Conf,
) {
	catalog, err := buildCatalog(ctx, conf)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading datasets")
		return
	}

	server := &apiServer{
		conf:     conf,
		catalog:  catalog,
		engine:   describe.NewEngine(catalog, interestMode(conf)),
		runner:   predict.NewRunner(catalog),
		sessions: make(map[string]*drillSession),
	}

	services := []service{server}
	for _, m := range services {
		m.Start(ctx)
	}
	<-ctx.Done()
	log.Warn().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, s := range services {
		wg.Add(1)
		go func(srv service) {
			defer wg.Done()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Type("service", srv).Msg("Error shutting down service")
			}
		}(s)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Graceful shutdown completed")
	case <-shutdownCtx.Done():
		log.Warn().Msg("Shutdown timed out")
	}
}
