package session

import "errors"

var (
	// -- Input --
	ErrEmptyKey = errors.New("session key is empty")

	// -- Backend failures --
	ErrStoreRead   = errors.New("failed to read session store")
	ErrStoreWrite  = errors.New("failed to write session store")
	ErrStoreRemove = errors.New("failed to remove session keys")
)
