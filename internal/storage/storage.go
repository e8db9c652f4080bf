// Package storage объявляет ошибки хранилища, общие для репозитория и сервисов.
package storage

import "errors"

var (
	// ErrSubscriptionNotFound — подписка не найдена или принадлежит другому пользователю.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrUserNotFound — пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
)
