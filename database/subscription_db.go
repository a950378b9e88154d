package database

import (
	"database/sql"
	"errors"
	"fmt"
	"submerger/models"
)

// GetAllSubscriptions returns every stored subscription in insertion order.
// The order matters: positional "subN" fallback labels are derived from it.
func GetAllSubscriptions() ([]models.Subscription, error) {
	rows, err := DB.Query("SELECT id, url, COALESCE(name, ''), created_at FROM subscriptions ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.URL, &sub.Name, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning subscription row: %w", err)
		}
		subs = append(subs, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscription rows: %w", err)
	}
	return subs, nil
}

func GetSubscriptionByID(id string) (models.Subscription, error) {
	var sub models.Subscription
	err := DB.QueryRow("SELECT id, url, COALESCE(name, ''), created_at FROM subscriptions WHERE id = ?", id).
		Scan(&sub.ID, &sub.URL, &sub.Name, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sub, fmt.Errorf("subscription with ID %s not found", id)
		}
		return sub, fmt.Errorf("querying subscription %s: %w", id, err)
	}
	return sub, nil
}

func AddSubscription(sub models.Subscription) (models.Subscription, error) {
	stmt, err := DB.Prepare("INSERT INTO subscriptions (id, url, name) VALUES (?, ?, NULLIF(?, ''))")
	if err != nil {
		return sub, fmt.Errorf("preparing subscription insert: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(sub.ID, sub.URL, sub.Name); err != nil {
		return sub, fmt.Errorf("inserting subscription %s: %w", sub.URL, err)
	}
	return GetSubscriptionByID(sub.ID)
}

func UpdateSubscription(sub models.Subscription) (models.Subscription, error) {
	res, err := DB.Exec("UPDATE subscriptions SET url = ?, name = NULLIF(?, '') WHERE id = ?", sub.URL, sub.Name, sub.ID)
	if err != nil {
		return sub, fmt.Errorf("updating subscription %s: %w", sub.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return sub, fmt.Errorf("checking update result for subscription %s: %w", sub.ID, err)
	}
	if affected == 0 {
		return sub, fmt.Errorf("subscription with ID %s not found", sub.ID)
	}
	return GetSubscriptionByID(sub.ID)
}

func DeleteSubscription(id string) error {
	res, err := DB.Exec("DELETE FROM subscriptions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting subscription %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result for subscription %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("subscription with ID %s not found", id)
	}
	return nil
}
