/*
Package jail lets moderators take every role of a member away in exchange for the jail role, and give them back later.

The roles held before jailing are saved as a snapshot keyed by the member's user ID.
On release the jail role is removed and the roles of the snapshot that still exist are restored in a single member edit.
*/
package jail
