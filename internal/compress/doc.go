// Package compress provides single-block compression for persisted models.
package compress
