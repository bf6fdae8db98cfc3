// Package transcript parses meeting transcripts into speaker segments.
package transcript
