package config

import "errors"

// ErrRuleIndexOutOfRange is returned by UpsertRule/DeleteRule when Index is
// neither an existing rule nor (for UpsertRule) exactly the next free slot.
var ErrRuleIndexOutOfRange = errors.New("config: rule index out of range")
