// Package handlers contains the fiber handlers of the conversion API.
package handlers
