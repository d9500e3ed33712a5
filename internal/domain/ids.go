package domain

// UserID is an internal identifier for a subscriber record.
type UserID string

// VehicleID is an internal identifier for a vehicle record.
type VehicleID string

// SubscriptionID is an internal identifier for a subscription record.
type SubscriptionID string

// PurchaseID is an internal identifier for a purchase history record.
type PurchaseID string
