/*
Package verification reminds moderators of open verification tickets.

A daily task posts how many tickets are open. Another task lists the tickets where nobody but the bot has written,
reminding each ticket at most once per cooldown. Replying to such a reminder with a ticket mention checks the ticket off.
*/
package verification
