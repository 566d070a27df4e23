// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package version

// Tag specifies the current release tag. It needs to be manually
// updated before cutting a release.
const Tag = "v1.2.0"
