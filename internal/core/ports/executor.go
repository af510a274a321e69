package ports

import "context"

// Executor runs commands inside an activated bundle.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs command with env merged over the current process environment.
	//
	// The env parameter contains environment variables in "KEY=VALUE" format,
	// typically provided by an Activator.
	//
	// It returns an error if the command fails.
	Execute(ctx context.Context, command []string, env []string) error
}
