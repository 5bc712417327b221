// Package comments holds the cases of the comment length check.
//
//	datastore --backend filesystem --path /var/lib/bottlerocket/datastore/current get
package comments

// Short is fine.
const Short = 1

// This comment is definitely longer than the eighty characters allowed by check. // want "Comment too long"
const Long = 2
