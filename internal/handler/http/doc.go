// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package http implements the HTTP transport layer of the application.
//
// It exposes route wiring, request handlers, and middleware used by the REST
// API. Every route is tenant-scoped: the tenant resolution middleware maps
// the public tenant UUID in the path to an internal id before requests are
// delegated to the service layer. Cross-cutting concerns such as request
// tracing and access logging are handled here as well.
package http
