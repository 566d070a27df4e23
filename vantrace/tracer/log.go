// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package tracer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/vantrace/vantrace-go/internal/log"
	"github.com/vantrace/vantrace-go/internal/version"
)

// startupInfo contains various information about the status of the tracer on startup.
type startupInfo struct {
	Date           string            `json:"date"`            // ISO 8601 date and time of start
	OSName         string            `json:"os_name"`         // Windows, Darwin, Debian, etc.
	Arch           string            `json:"architecture"`    // Architecture of host machine
	Version        string            `json:"version"`         // Tracer version
	Lang           string            `json:"lang"`            // "Go"
	LangVersion    string            `json:"lang_version"`    // Go version, e.g. go1.23
	Env            string            `json:"env"`             // Tracer env
	Service        string            `json:"service"`         // Tracer Service
	AgentURL       string            `json:"agent_url"`       // The address of the agent
	AgentError     string            `json:"agent_error"`     // Any error that occurred trying to connect to agent
	Debug          bool              `json:"debug"`           // Whether debug mode is enabled
	ServiceVersion string            `json:"service_version"` // Version of the user's service
	Tags           map[string]string `json:"tags"`            // Global tags
	LambdaMode     string            `json:"lambda_mode"`     // Whether the client has enabled lambda mode
}

// checkEndpoint tries to connect to the URL specified by endpoint.
// If the endpoint is not reachable, checkEndpoint returns an error
// explaining why.
func checkEndpoint(c *http.Client, endpoint string) error {
	req, err := http.NewRequest("POST", endpoint, bytes.NewReader([]byte{0x90}))
	if err != nil {
		return fmt.Errorf("cannot create http request: %v", err)
	}
	for header, value := range defaultHeaders {
		req.Header.Set(header, value)
	}
	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// logStartup generates a startupInfo for a tracer and writes it to the log in
// JSON format.
func logStartup(t *tracer) {
	tags := make(map[string]string, len(t.config.globalTags))
	for k, v := range t.config.globalTags {
		tags[k] = fmt.Sprintf("%v", v)
	}

	info := startupInfo{
		Date:           time.Now().Format(time.RFC3339),
		OSName:         runtime.GOOS,
		Arch:           runtime.GOARCH,
		Version:        version.Tag,
		Lang:           "Go",
		LangVersion:    runtime.Version(),
		Env:            t.config.env,
		Service:        t.config.serviceName,
		AgentURL:       t.transport.endpoint(),
		Debug:          t.config.debug,
		ServiceVersion: t.config.version,
		Tags:           tags,
		LambdaMode:     strconv.FormatBool(t.config.logToStdout),
	}
	if !t.config.logToStdout {
		if err := checkEndpoint(t.config.httpClient, t.transport.endpoint()); err != nil {
			info.AgentError = fmt.Sprintf("%s", err)
			log.Warn("DIAGNOSTICS Unable to reach agent intake: %s", err)
		}
	}
	bs, err := json.Marshal(info)
	if err != nil {
		log.Warn("DIAGNOSTICS Failed to serialize json for startup log (%v) %#v", err, info)
		return
	}
	log.Info("VANTRACE TRACER CONFIGURATION %s", string(bs))
}
