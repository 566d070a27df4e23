// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package internal

type contextKey struct{}

// ActiveSpanKey is used to set tracer information in a context.Context object.
var ActiveSpanKey = contextKey{}
