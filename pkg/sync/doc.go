/*
The sync package decides which files need to move between the local sync
folder and the remote root, and drives a remote.Client to move them.

A sync pass works on two snapshots:
1) LocalSnapshot -- the files and folders under the local sync folder.
2) RemoteSnapshot -- the items found by walking the remote root.

Push makes the remote side match the local one, and Pull does the reverse.
Files are compared by size only, since not every server reports reliable
modification times. Nothing is ever deleted by a sync pass. Files that exist
only on the destination side are left alone.

Ignore rules apply to both snapshots, so an ignored name is never listed,
uploaded, or downloaded.
*/
package sync
