package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "./config.toml"

// DefaultWorkspacePath is the default workspace directory
const DefaultWorkspacePath = "~/.linkpilot"
