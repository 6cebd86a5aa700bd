// Lifecycle serves requests through pooled controllers that track every
// object a request borrows and return it when the request ends.
//
// Usage:
//
//	# Start the server with the default configuration file
//	lifecycle run
//
//	# Start with a custom configuration file
//	lifecycle run --config /path/to/config.yaml
//
//	# Check a configuration file
//	lifecycle validate --config config.yaml
//
//	# Show recent request audit records
//	lifecycle audit list --limit 20 --format json
package main

func main() {
	Execute()
}
