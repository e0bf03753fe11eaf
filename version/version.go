// version.go
package version

import "fmt"

// AppName holds the name of the SDK
var AppName = "go-api-sdk-fidelis"

// Version holds the current version of the SDK
var Version = "0.1.0"

// GetAppName returns the name of the SDK
func GetAppName() string {
	return AppName
}

// GetVersion returns the current version of the SDK
func GetVersion() string {
	return Version
}

// GetUserAgentHeader returns the User-Agent sent with every request, e.g. "go-api-sdk-fidelis/0.1.0".
func GetUserAgentHeader() string {
	return fmt.Sprintf("%s/%s", AppName, Version)
}
