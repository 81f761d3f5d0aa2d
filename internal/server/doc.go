// Package server is the connectivity probe's HTTP front end. It renders the
// index page, turns each form submission into a database check or an object
// upload, and exposes health and metrics endpoints for operators.
package server
