package testutil

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v4/stdlib"
)

var (
	DB     *sql.DB
	dbUser = "root"
	dbPass = "secret"
	dbHost = "127.0.0.1"
	dbPort = "5432"
	dbName = "lumenvault-db-test"
)

func SetupDB() error {
	db, err := createDBConnection()
	if err != nil {
		return err
	}

	DB = db
	return nil
}

func ShutdownDB() error {
	if err := TruncateDB(); err != nil {
		return err
	}

	return DB.Close()
}

func TruncateDB() error {
	truncateQuery := `
          TRUNCATE challenge, proposal_approval, proposal, account_signer, account
 `
	_, err := DB.ExecContext(context.Background(), truncateQuery)
	if err != nil {
		return err
	}

	return nil
}

func createDBConnection() (*sql.DB, error) {
	formattedURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s", dbUser, dbPass, dbHost, dbPort, dbName,
	)
	db, err := sql.Open("pgx", formattedURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
