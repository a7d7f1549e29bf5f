package profile

import "github.com/benvon/embody/internal/tree"

// UsersPath is the parent of every user record
const UsersPath = "users"

// UserPath is the root record of one account
func UserPath(uid string) string { return tree.Join(UsersPath, uid) }

// TodosPath is the live todo collection
func TodosPath(uid string) string { return tree.Join(UsersPath, uid, "todos") }

// TodoPath is one todo item
func TodoPath(uid, id string) string { return tree.Join(UsersPath, uid, "todos", id) }

// CheckedPath is the checked flag of one todo item
func CheckedPath(uid, id string) string { return tree.Join(UsersPath, uid, "todos", id, "checked") }

// HistoryPath holds one DayData per date
func HistoryPath(uid string) string { return tree.Join(UsersPath, uid, "history") }

// DayPath is the snapshot for a single date
func DayPath(uid, date string) string { return tree.Join(UsersPath, uid, "history", date) }

// LastResetDatePath records the last day rollover
func LastResetDatePath(uid string) string { return tree.Join(UsersPath, uid, "lastResetDate") }
