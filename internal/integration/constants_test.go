package integration_test

import "time"

const (
	dbName         = "cinema_ticketing"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
	migrationsPath = "file://../../migrations"

	TestUserId        = 1
	TestUserFirstName = "Anna"
	TestUserEmail     = "anna@example.com"

	TestShowingId = 12
	TestHall      = 3
)

const (
	defaultWait = 2 * time.Second
	defaultTick = 20 * time.Millisecond
)
