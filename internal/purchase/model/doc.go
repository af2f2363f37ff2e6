// Package model defines domain models for subscription tier purchases.
package model
