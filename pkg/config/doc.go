// Package config loads purchase-layer settings from the environment and
// product manifests from YAML.
//
// Environment loading follows the usual pattern: an optional .env file is
// read first, then variables are parsed into the Config struct by tag.
// Every setting has a default, so a host can start with an empty
// environment.
//
// The manifest replaces the product-id string parsing the WebView
// storefronts relied on: which products exist, what kind they are and how
// many consumable units they grant is declared data, not derived from id
// naming conventions.
package config
