package instance

import "os"

// GetID returns this process's instance identifier: ATTOS_INSTANCE_ID, then
// the platform's DYNO, then the hostname, then "local".
func GetID() string {
	for _, key := range []string{"ATTOS_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
