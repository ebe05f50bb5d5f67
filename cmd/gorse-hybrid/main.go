// Copyright 2026 gorse Project Authors
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
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gorse-io/hybrid/base/log"
	"github.com/gorse-io/hybrid/client"
	"github.com/gorse-io/hybrid/cmd/version"
	"github.com/gorse-io/hybrid/common/parallel"
	"github.com/gorse-io/hybrid/config"
	"github.com/gorse-io/hybrid/logics"
	"github.com/gorse-io/hybrid/model/hybrid"
	"github.com/gorse-io/hybrid/server"
	"github.com/gorse-io/hybrid/storage"
	"github.com/gorse-io/hybrid/storage/cache"
	"github.com/gorse-io/hybrid/storage/data"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:          "gorse-hybrid",
	Short:        "Logistic blend of recommender scores.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
	},
}

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Fit the blend on the tuning examples and print the weights.",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		env, err := openEnv(configPath)
		if err != nil {
			return errors.Trace(err)
		}
		defer env.Close()
		bar := progressbar.NewOptions(env.config.Blend.NEpochs,
			progressbar.OptionSetDescription("fit"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount())
		scorer, err := logics.Train(cmd.Context(), env.dataStore, env.recommenders,
			env.config.Blend.GetParams(), &barObserver{bar: bar})
		if err != nil {
			return errors.Annotate(err, "failed to train logistic model")
		}
		_ = bar.Finish()
		fmt.Println()
		weights, err := scorer.Model().Named(hybrid.FeatureNames(env.recommenders))
		if err != nil {
			return errors.Trace(err)
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Feature", "Weight")
		_ = table.Append([]string{"intercept", formatFloat(scorer.Model().Intercept())})
		for _, weight := range weights {
			_ = table.Append([]string{weight.Name, formatFloat(weight.Weight)})
		}
		return errors.Trace(table.Render())
	},
}

var scoreCommand = &cobra.Command{
	Use:   "score [user-id]...",
	Short: "Train the blend and score items for users.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemIds, _ := cmd.Flags().GetStringSlice("item")
		if len(itemIds) == 0 {
			return errors.New("at least one --item is required")
		}
		var (
			results []map[string]float64
			err     error
		)
		if endpoint, _ := cmd.Flags().GetString("endpoint"); endpoint != "" {
			apiKey, _ := cmd.Flags().GetString("api-key")
			results, err = scoreRemote(cmd.Context(), client.NewHybridClient(endpoint, apiKey), args, itemIds)
		} else {
			results, err = scoreLocal(cmd, args, itemIds)
		}
		if err != nil {
			return errors.Annotate(err, "failed to score")
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("User", "Item", "Score")
		for i, userId := range args {
			for _, itemId := range itemIds {
				_ = table.Append([]string{userId, itemId, formatFloat(results[i][itemId])})
			}
		}
		return errors.Trace(table.Render())
	},
}

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Train the blend in the background and serve scores over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		env, err := openEnv(configPath)
		if err != nil {
			return errors.Trace(err)
		}
		defer env.Close()
		tp, err := env.config.Tracing.NewTracerProvider()
		if err != nil {
			return errors.Annotate(err, "failed to create tracer provider")
		}
		otel.SetTracerProvider(tp)
		otel.SetErrorHandler(log.GetErrorHandler())
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		if sdkProvider, ok := tp.(*tracesdk.TracerProvider); ok {
			defer func() {
				if err := sdkProvider.Shutdown(context.Background()); err != nil {
					log.Logger().Error("failed to shutdown tracer provider", zap.Error(err))
				}
			}()
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		s := server.NewServer(env.config, env.dataStore, env.recommenders)
		return errors.Annotate(s.Serve(ctx), "failed to serve")
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show version information.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.BuildInfo())
	},
}

// scoreRemote asks a running server to score items for each user.
func scoreRemote(ctx context.Context, c *client.HybridClient, userIds, itemIds []string) ([]map[string]float64, error) {
	results := make([]map[string]float64, len(userIds))
	for i, userId := range userIds {
		scores, err := c.Score(ctx, userId, itemIds)
		if err != nil {
			return nil, errors.Annotatef(err, "user %s", userId)
		}
		results[i] = make(map[string]float64, len(scores))
		for _, score := range scores {
			results[i][score.Id] = score.Score
		}
	}
	return results, nil
}

func scoreLocal(cmd *cobra.Command, userIds, itemIds []string) ([]map[string]float64, error) {
	configPath, _ := cmd.Flags().GetString("config")
	env, err := openEnv(configPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer env.Close()
	scorer, err := logics.Train(cmd.Context(), env.dataStore, env.recommenders, env.config.Blend.GetParams(), nil)
	if err != nil {
		return nil, errors.Annotate(err, "failed to train logistic model")
	}
	return logics.ScoreUsers(cmd.Context(), scorer, userIds, itemIds, env.config.Blend.Jobs)
}

type environment struct {
	config       *config.Config
	dataStore    data.Database
	cacheStore   cache.Database
	recommenders *hybrid.RecommenderList
}

// openEnv loads the configuration and connects to the data store and the cache store.
func openEnv(configPath string) (*environment, error) {
	log.Logger().Info("load config", zap.String("config", configPath))
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to load config")
	}
	dataStore, err := data.Open(cfg.Database.DataStore, cfg.Database.TablePrefix,
		storage.WithMaxOpenConns(cfg.Database.MaxOpenConns))
	if err != nil {
		return nil, errors.Annotatef(err, "failed to connect data store %s", log.RedactDBURL(cfg.Database.DataStore))
	}
	if err = dataStore.Init(); err != nil {
		_ = dataStore.Close()
		return nil, errors.Annotate(err, "failed to init data store")
	}
	cacheStore, err := cache.Open(cfg.Database.CacheStore, cfg.Database.TablePrefix)
	if err != nil {
		_ = dataStore.Close()
		return nil, errors.Annotatef(err, "failed to connect cache store %s", log.RedactDBURL(cfg.Database.CacheStore))
	}
	limiter := parallel.NewRateLimiter(cfg.Database.CacheRPS)
	return &environment{
		config:       cfg,
		dataStore:    dataStore,
		cacheStore:   cacheStore,
		recommenders: logics.NewRecommenderList(cfg.Blend.Recommenders, cacheStore, limiter),
	}, nil
}

func (env *environment) Close() {
	if err := env.dataStore.Close(); err != nil {
		log.Logger().Error("failed to close data store", zap.Error(err))
	}
	if err := env.cacheStore.Close(); err != nil {
		log.Logger().Error("failed to close cache store", zap.Error(err))
	}
}

type barObserver struct {
	bar *progressbar.ProgressBar
}

func (o *barObserver) OnEpoch(epoch, _ int, _ *hybrid.LogisticModel) {
	_ = o.bar.Set(epoch)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func init() {
	rootCommand.PersistentFlags().StringP("config", "c", "config.toml", "configuration file path")
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(rootCommand.PersistentFlags())
	scoreCommand.Flags().StringSliceP("item", "i", nil, "item to score (repeatable)")
	scoreCommand.Flags().String("endpoint", "", "score with a running server instead of training locally")
	scoreCommand.Flags().String("api-key", "", "secret key for RESTful API")
	rootCommand.AddCommand(trainCommand, scoreCommand, serveCommand, versionCommand)
}

func main() {
	if err := rootCommand.ExecuteContext(context.Background()); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(errors.Trace(err)))
	}
}
