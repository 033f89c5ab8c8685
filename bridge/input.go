// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "strings"

const (
	// DefaultUserID is used when the input does not name a user.
	DefaultUserID = "default-user"

	userIDPrefix = "user_id"
	userIDSep    = "::"
)

// ParseUserInput splits input of the form "user_id::<id>::<query>" into the
// user id and query. Any other input, including a prefix with fewer than
// three segments, yields DefaultUserID and the raw input. An empty id also
// selects DefaultUserID but still strips the prefix from the query.
func ParseUserInput(input string) (userID, query string) {
	parts := strings.SplitN(input, userIDSep, 3)
	if len(parts) != 3 || parts[0] != userIDPrefix {
		return DefaultUserID, input
	}
	if parts[1] == "" {
		return DefaultUserID, parts[2]
	}
	return parts[1], parts[2]
}

// FormatUserInput prefixes query with userID in the form ParseUserInput reads.
// An empty userID leaves query unchanged.
func FormatUserInput(userID, query string) string {
	if userID == "" {
		return query
	}
	return userIDPrefix + userIDSep + userID + userIDSep + query
}
