// Package config defines configuration for the webarchive tool.
package config
