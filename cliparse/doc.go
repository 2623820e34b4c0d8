// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags and Environment Variables

	-p               PORT               Server port (default 3318)
	-d               DATABASE_URL       Database URL (not needed for memory)
	-t               DATABASE_TYPE      sqlite, postgres or memory (default sqlite)
	-base-url        BASE_URL           Public URL for share links and blobs
	-identity-salt   IDENTITY_SALT      Secret for signing identity tokens (required)
	-identity-mode   IDENTITY_MODE      token or header (default token)
	-identity-header IDENTITY_HEADER    Trusted header in header mode (default X-User-ID)
	-blob-dir        BLOB_DIR           Image directory (default ./blobs)
	-max-upload      MAX_UPLOAD_SIZE    Largest accepted image (default 32MB)
	-slot-ttl        UPLOAD_SLOT_TTL    Upload slot lifetime (default 10m)
	-results-ttl     RESULTS_CACHE_TTL  Results cache lifetime (default 30s)
	-rate            RATE_LIMIT         Requests per second per client (default 10)
	-burst           RATE_BURST         Burst per client (default 20)

CLI flags take precedence over environment variables. Before falling back
to the environment, ParseFlags loads the dotenv file named by -env
(default .env) if it exists; variables already set are left alone.

Sizes accept humanized values ("512KB", "32MB", "1GiB").
*/
package cliparse
