// Package sqldir implements the directory contract on top of a SQL mirror.
// It exists for environments that replicate their directory tree into MySQL
// and for exercising the engine end to end without an LDAP server.
package sqldir
