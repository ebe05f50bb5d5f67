// Copyright 2020 gorse Project Authors
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

package data

import (
	"context"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/gorse-io/hybrid/base/log"
	"github.com/gorse-io/hybrid/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
	"moul.io/zapgorm2"
)

// Example is a labelled user-item pair held out for tuning the blend. Label is +1 or -1.
type Example struct {
	Id     int64   `gorm:"column:id;primaryKey;autoIncrement:false" json:"Id"`
	UserId string  `gorm:"column:user_id;type:varchar(256) not null" json:"UserId"`
	ItemId string  `gorm:"column:item_id;type:varchar(256) not null" json:"ItemId"`
	Label  float64 `gorm:"column:label;not null" json:"Label"`
}

// Rating is an observed rating of an item by a user.
type Rating struct {
	UserId string  `gorm:"column:user_id;type:varchar(256) not null;primaryKey" json:"UserId"`
	ItemId string  `gorm:"column:item_id;type:varchar(256) not null;primaryKey" json:"ItemId"`
	Rating float64 `gorm:"column:rating;not null" json:"Rating"`
}

type BiasKind string

const (
	GlobalBias BiasKind = "global"
	UserBias   BiasKind = "user"
	ItemBias   BiasKind = "item"
)

// Bias is one term of the baseline estimate. The global term has an empty id.
type Bias struct {
	Kind BiasKind `gorm:"column:kind;type:varchar(16) not null;primaryKey" json:"Kind"`
	Id   string   `gorm:"column:id;type:varchar(256) not null;primaryKey" json:"Id"`
	Bias float64  `gorm:"column:bias;not null" json:"Bias"`
}

type Database interface {
	Init() error
	Ping() error
	Close() error
	Purge() error
	BatchInsertExamples(ctx context.Context, examples []Example) error
	GetExamples(ctx context.Context) ([]Example, error)
	BatchInsertRatings(ctx context.Context, ratings []Rating) error
	CountItemRatings(ctx context.Context) (map[string]int, error)
	BatchInsertBiases(ctx context.Context, biases []Bias) error
	GetBiases(ctx context.Context) ([]Bias, error)
}

// Open a connection to a database.
func Open(path, tablePrefix string, opts ...storage.Option) (Database, error) {
	var err error
	option := storage.NewOptions(opts...)
	if strings.HasPrefix(path, storage.MySQLPrefix) {
		name := path[len(storage.MySQLPrefix):]
		if name, err = storage.AppendMySQLParams(name, map[string]string{
			"sql_mode":  "'ONLY_FULL_GROUP_BY,STRICT_TRANS_TABLES,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION'",
			"parseTime": "true",
		}); err != nil {
			return nil, errors.Trace(err)
		}
		database := new(SQLDatabase)
		database.driver = MySQL
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("mysql", name,
			otelsql.WithAttributes(attribute.String("db.system", "mysql")),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		storage.ApplySQLPool(database.client, option)
		database.gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: database.client}), newGORMConfig())
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.PostgresPrefix) || strings.HasPrefix(path, storage.PostgreSQLPrefix) {
		database := new(SQLDatabase)
		database.driver = Postgres
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("postgres", path,
			otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		storage.ApplySQLPool(database.client, option)
		database.gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: database.client}), newGORMConfig())
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.SQLitePrefix) {
		if path, err = storage.AppendURLParams(path, []lo.Tuple2[string, string]{
			{A: "_pragma", B: "busy_timeout(10000)"},
			{A: "_pragma", B: "journal_mode(wal)"},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		name := path[len(storage.SQLitePrefix):]
		database := new(SQLDatabase)
		database.driver = SQLite
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("sqlite", name,
			otelsql.WithAttributes(attribute.String("db.system", "sqlite")),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		storage.ApplySQLPool(database.client, option)
		database.gormDB, err = gorm.Open(sqlite.Dialector{Conn: database.client}, newGORMConfig())
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	}
	return nil, errors.Errorf("Unknown database: %s", log.RedactDBURL(path))
}

func newGORMConfig() *gorm.Config {
	return &gorm.Config{
		Logger: &zapgorm2.Logger{
			ZapLogger:                 log.Logger(),
			LogLevel:                  logger.Warn,
			SlowThreshold:             10 * time.Second,
			IgnoreRecordNotFoundError: true,
		},
		CreateBatchSize:        1000,
		SkipDefaultTransaction: true,
	}
}
