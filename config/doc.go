/*
Package config composes the settings of every component into one YAML document.

	discord:
	  guild_id: "887834241881227350"
	challenge:
	  role_id: "1349095399918407700"
	  channel_id: "1349095399918407710"
	  opt_in_message_id: "1349095399918407720"
	  operator_channel_id: "887834241881227354"
	  time_limit: 24h
	verification:
	  category_id: "1349095399918407731"
	  reminder_channel_id: "887834241881227354"
	jail_role_id: "897591887140098139"

The Discord token is usually given through the DISCORD_TOKEN environment variable instead of the file.
*/
package config
