/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomoncle/datajpa/database"
	_ "github.com/tomoncle/datajpa/entity" // registers the models
	"github.com/tomoncle/datajpa/utils"
)

var (
	configPath string
	logFormat  string
	logDir     string

	rootCmd = &cobra.Command{
		Use:          "datajpa",
		Short:        "Member and team record store",
		Long:         "datajpa manages the member/team store: schema migration, seed data and queries.",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "console log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "write daily rolling log files under this directory")
	rootCmd.AddCommand(
		migrateCmd,
		seedCmd,
		membersCmd,
		healthCmd,
	)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// openDatabase loads the configuration, sets up logging and connects.
// Migrations run when migrate is true or the configuration enables them on
// startup.
func openDatabase(ctx context.Context, migrate bool) (*database.BaseDatabaseFactory, error) {
	cfg, err := database.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if logDir != "" {
		cfg.Log.File.Enabled = true
		cfg.Log.File.Dir = logDir
	}
	if err := utils.ConfigureLogging(cfg.Log); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	if migrate {
		cfg.DataMigrateConfig.EnableMigrateOnStartup = true
	}
	factory, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return factory, nil
}

// withDatabase adapts fn to a cobra RunE. The database is closed when fn
// returns, whether or not it failed.
func withDatabase(migrate bool, fn func(cmd *cobra.Command, f *database.BaseDatabaseFactory) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) (err error) {
		f, err := openDatabase(cmd.Context(), migrate)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close database: %w", cerr)
			}
		}()
		return fn(cmd, f)
	}
}
