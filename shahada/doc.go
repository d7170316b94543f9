/*
Package shahada provides the moderator commands that count members who took their shahada.
The counter is kept in a JSON document with a total and the list of counted member IDs.
*/
package shahada
