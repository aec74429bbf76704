package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/dekorekillian57-star/spendo/internal/users"
	"github.com/dekorekillian57-star/spendo/pkg/config"
	"github.com/dekorekillian57-star/spendo/pkg/db"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
	"github.com/dekorekillian57-star/spendo/pkg/migrate"
	"github.com/dekorekillian57-star/spendo/pkg/security"
)

type options struct {
	cmd      string
	dir      string
	name     string
	version  string
	username string
	email    string
	password string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.cmd, "cmd", "up", "up|down|status|version|create|validate|create-admin")
	flag.StringVar(&o.dir, "dir", migrate.SourceDir, "migration source directory (create, validate)")
	flag.StringVar(&o.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&o.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.StringVar(&o.username, "username", "", "admin username for -cmd=create-admin")
	flag.StringVar(&o.email, "email", "", "admin email for -cmd=create-admin")
	flag.StringVar(&o.password, "password", "", "admin password for -cmd=create-admin, ADMIN_PASSWORD when empty")
	flag.Parse()
	return o
}

func main() {
	_ = godotenv.Load()
	opts := parseFlags()

	// file-only commands run without config so they work on a bare checkout
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			fail("validate migrations: %v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail("load config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": opts.cmd})

	if opts.cmd == "create-admin" {
		if err := createAdmin(ctx, cfg, logg, opts); err != nil {
			logg.Error(ctx, "create admin failed", err)
			os.Exit(1)
		}
		return
	}

	sqlDB, err := openSchemaDB(cfg.DB)
	if err != nil {
		logg.Error(ctx, "open database failed", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	runner, err := migrate.NewRunner(sqlDB, nil)
	if err != nil {
		logg.Error(ctx, "build migration runner failed", err)
		os.Exit(1)
	}
	if err := runSchemaCommand(ctx, runner, opts); err != nil {
		logg.Error(logg.WithFields(ctx, pkgerrors.LogFields(err)), "migration command failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration command finished")
}

// openSchemaDB talks to Postgres over lib/pq; goose owns its own transactions.
func openSchemaDB(cfg config.DBConfig) (*sql.DB, error) {
	if cfg.Driver != "" && cfg.Driver != db.DriverPostgres {
		return nil, fmt.Errorf("schema migrations need postgres, got driver %q", cfg.Driver)
	}
	sqlDB, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return sqlDB, nil
}

func runSchemaCommand(ctx context.Context, runner *migrate.Runner, opts options) error {
	switch opts.cmd {
	case "up":
		applied, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d migration(s)\n", applied)
		return nil
	case "down":
		return runner.Down(ctx)
	case "status":
		rows, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(rows)
		return nil
	case "version":
		target, err := strconv.ParseInt(opts.version, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid -version %q: %w", opts.version, err)
		}
		return runner.To(ctx, target)
	default:
		return fmt.Errorf("unknown -cmd %q", opts.cmd)
	}
}

func printStatus(rows []migrate.Status) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tMIGRATION\tAPPLIED AT")
	for _, row := range rows {
		applied := "pending"
		if row.Applied {
			applied = row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", row.Version, row.Name, applied)
	}
	_ = tw.Flush()
}

func createAdmin(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	secret := opts.password
	if secret == "" {
		secret = os.Getenv("ADMIN_PASSWORD")
	}
	if opts.username == "" || opts.email == "" || secret == "" {
		return fmt.Errorf("create-admin needs -username, -email and -password")
	}
	if err := security.CheckPasswordLength(secret, cfg.Password); err != nil {
		return err
	}
	hash, err := security.HashPassword(secret, cfg.Password)
	if err != nil {
		return err
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()

	admin, err := users.NewAdminRepository(client.DB()).Create(ctx, opts.username, opts.email, hash)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "admin_id", admin.ID.String()), "admin created")
	return nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
