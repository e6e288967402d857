// Package handler implements the HTTP dispatch endpoint. It decodes
// dispatch requests, forwards them through the resilient dispatcher and
// maps the dispatcher's error taxonomy onto HTTP statuses.
package handler
