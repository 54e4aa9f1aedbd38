package cmd

import (
	"os"

	"github.com/apex/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/materials-commons/depot/pkg/actions"
	"github.com/materials-commons/depot/pkg/config"
	"github.com/materials-commons/depot/pkg/depotdb"
	"github.com/materials-commons/depot/pkg/depotdb/stor"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/storage/dbstore"
	"github.com/materials-commons/depot/pkg/storage/fsstore"
	"github.com/materials-commons/depot/pkg/storage/linkstore"
	"github.com/materials-commons/depot/pkg/storage/memstore"
	"github.com/materials-commons/depot/pkg/storage/redisstore"
	"github.com/materials-commons/depot/pkg/storage/s3store"
	"github.com/spf13/cobra"
)

var dotenvPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "depotd",
	Short: "Run the depot API server",
	Long:  ``,
	Run: func(cmd *cobra.Command, args []string) {
		if dotenvPath != "" {
			if err := config.LoadFromPath(dotenvPath); err != nil {
				log.Fatalf("Unable to load config from %s: %s", dotenvPath, err)
			}
		}

		registerAdapters()

		if err := storage.SetupFromConfig(config.GetConfig()); err != nil {
			log.Fatalf("Unable to configure storages: %s", err)
		}

		db := depotdb.MustConnectToDB()
		if err := depotdb.RunMigrations(db); err != nil {
			log.Fatalf("Unable to run migrations: %s", err)
		}

		service := actions.NewService(stor.NewGormStors(db))

		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.Use(middleware.Recover())

		setupRoutes(e, RouteOpts{
			service:  service,
			adminKey: config.GetKey("DEPOT_ADMIN_KEY"),
		})

		if err := e.Start(":" + config.GetKeyWithDefault("DEPOT_PORT", "1560")); err != nil {
			log.Fatalf("Unable to start server: %v", err)
		}
	},
}

func registerAdapters() {
	fsstore.Register()
	redisstore.Register()
	s3store.Register()
	dbstore.Register()
	linkstore.Register()
	memstore.Register()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&dotenvPath, "dotenv", "", "Path to a dotenv file with storage definitions")
}
