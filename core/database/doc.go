// Package database provides the GORM/MySQL connection used by the sqldir
// reference directory backend.
package database
