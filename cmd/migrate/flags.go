package migrate

import (
	"github.com/spf13/cobra"

	"github.com/ontologymarket/catalog/cmd/util"
)

// bindRunFlags binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindRunFlags(command *cobra.Command, _ []string) {
	flags := command.Flags()

	util.MustBindPFlag(datastoreEngineFlag, flags.Lookup(datastoreEngineFlag))
	util.MustBindEnv(datastoreEngineFlag, "CATALOG_DATASTORE_ENGINE")

	util.MustBindPFlag(datastoreURIFlag, flags.Lookup(datastoreURIFlag))
	util.MustBindEnv(datastoreURIFlag, "CATALOG_DATASTORE_URI")

	util.MustBindPFlag(datastoreUsernameFlag, flags.Lookup(datastoreUsernameFlag))
	util.MustBindEnv(datastoreUsernameFlag, "CATALOG_DATASTORE_USERNAME")

	util.MustBindPFlag(datastorePasswordFlag, flags.Lookup(datastorePasswordFlag))
	util.MustBindEnv(datastorePasswordFlag, "CATALOG_DATASTORE_PASSWORD")

	util.MustBindPFlag(versionFlag, flags.Lookup(versionFlag))
	util.MustBindPFlag(timeoutFlag, flags.Lookup(timeoutFlag))
	util.MustBindPFlag(verboseMigrationFlag, flags.Lookup(verboseMigrationFlag))

	util.MustBindPFlag(logFormatFlag, flags.Lookup(logFormatFlag))
	util.MustBindEnv(logFormatFlag, "CATALOG_LOG_FORMAT")

	util.MustBindPFlag(logLevelFlag, flags.Lookup(logLevelFlag))
	util.MustBindEnv(logLevelFlag, "CATALOG_LOG_LEVEL")

	util.MustBindPFlag(logTimestampFormatFlag, flags.Lookup(logTimestampFormatFlag))
	util.MustBindEnv(logTimestampFormatFlag, "CATALOG_LOG_TIMESTAMP_FORMAT")
}
