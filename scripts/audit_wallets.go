package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Reconciles wallet aggregates against the transaction ledger and reports
// wallets that drifted or exceed the 4x earning cap. Read-only.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Connected to database successfully")

	rows, err := db.Query(`
		SELECT w.user_id,
		       w.total_earned,
		       COALESCE(SUM(t.net_amount) FILTER (WHERE t.type IN ('ROI_EARNING', 'DIRECT_BONUS', 'WITHDRAWAL_UPLINE_REWARD')), 0) AS ledger_earned,
		       w.total_invested,
		       w.roi_balance + w.commission_balance AS capped_earnings
		FROM wallets w
		LEFT JOIN transactions t ON t.user_id = w.user_id AND t.status = 'COMPLETED'
		GROUP BY w.id`)
	if err != nil {
		log.Fatalf("Audit query failed: %v", err)
	}
	defer rows.Close()

	drifted := 0
	overCap := 0
	for rows.Next() {
		var userID int64
		var totalEarned, ledgerEarned, totalInvested, cappedEarnings float64
		if err := rows.Scan(&userID, &totalEarned, &ledgerEarned, &totalInvested, &cappedEarnings); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}

		// total_earned only ever grows; withdrawals drain balances, not it.
		if diff := totalEarned - ledgerEarned; diff > 1e-6 || diff < -1e-6 {
			drifted++
			fmt.Printf("DRIFT  user=%d total_earned=%.8f ledger=%.8f\n", userID, totalEarned, ledgerEarned)
		}
		if cappedEarnings > totalInvested*4+1e-6 {
			overCap++
			fmt.Printf("OVERCAP user=%d roi+commission=%.8f cap=%.8f\n", userID, cappedEarnings, totalInvested*4)
		}
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Row iteration failed: %v", err)
	}

	fmt.Printf("Audit finished: %d drifted, %d over cap\n", drifted, overCap)
}
