package ports

import "context"

//go:generate mockgen -destination=mocks/process_table.go -package=mocks . ProcessTable

// ProcessTable looks up running processes by image name.
type ProcessTable interface {
	// Lookup returns the PID of a process whose image name matches, and
	// whether one was found. Errors mean the table could not be read at all.
	Lookup(ctx context.Context, image string) (pid int, found bool, err error)
}
