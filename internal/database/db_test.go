package database

import (
	"strings"
	"testing"

	"github.com/ailabben/dashboard-api/internal/config"
)

func TestDSN(t *testing.T) {
	pg, err := DSN(config.Config{DBDriver: "postgres", DBUser: "app", DBPass: "p@ss", DBHost: "db", DBPort: "5432", DBName: "dash", DBSSLMode: "disable"})
	if err != nil {
		t.Fatal(err)
	}
	if pg != "postgres://app:p%40ss@db:5432/dash?sslmode=disable" {
		t.Fatalf("postgres dsn = %q", pg)
	}

	my, err := DSN(config.Config{DBDriver: "mysql", DBUser: "app", DBPass: "x", DBHost: "db", DBPort: "3306", DBName: "dash"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"app:x@tcp(db:3306)/dash", "parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(my, want) {
			t.Fatalf("mysql dsn %q missing %q", my, want)
		}
	}

	if got, _ := DSN(config.Config{DBDriver: "postgres", DBURL: "postgres://x/y"}); got != "postgres://x/y" {
		t.Fatalf("DB_URL not honoured: %q", got)
	}
	if _, err := DriverName("sqlite"); err == nil {
		t.Fatal("unsupported driver accepted")
	}
}
