package session

import (
	"strconv"
	"sync"
	"testing"

	"Nocturne/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// playingSession wires a session straight into the playing state so vote paths
// can be exercised without a live stream.
func playingSession(e *testEnv, guildID, botChannel, summonerID string) (*PlaybackSession, *fakeVoice) {
	sess := e.registry.GetOrCreate(guildID)
	vc := &fakeVoice{channel: botChannel}

	sess.mu.Lock()
	sess.state = StatePlaying
	sess.queue = queue.New()
	sess.vc = vc
	sess.summonerID = summonerID
	sess.textChannelID = "text"
	sess.mu.Unlock()

	return sess, vc
}

func soleOpenVote(t *testing.T, sess *PlaybackSession) *VoteRequest {
	t.Helper()
	votes := sess.openVotes()
	require.Len(t, votes, 1)
	return votes[0]
}

func TestMinimumAccepts(t *testing.T) {
	// Occupancy includes the bot; half of the rest, rounded.
	cases := map[int]int{
		1: 0,
		2: 1,
		3: 1,
		4: 2,
		5: 2,
		6: 3,
		7: 3,
	}
	for occupants, want := range cases {
		assert.Equal(t, want, minimumAccepts(occupants), "occupancy %d", occupants)
	}
}

func TestRequestMoveRequiresActiveSession(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")

	_, err := sess.RequestMove("u1", "dest", "text")
	assert.ErrorIs(t, err, ErrNotPlaying)
	_, err = sess.RequestLeave("u1", "text")
	assert.ErrorIs(t, err, ErrNotPlaying)
}

func TestRequestMoveSameChannel(t *testing.T) {
	env := newTestEnv()
	sess, _ := playingSession(env, "g1", "bot-ch", "owner")

	_, err := sess.RequestMove("u1", "bot-ch", "text")
	assert.ErrorIs(t, err, ErrAlreadyInChannel)
}

func TestMoveBypassedBySummoner(t *testing.T) {
	env := newTestEnv()
	sess, vc := playingSession(env, "g1", "bot-ch", "u1")
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2", "u3", "u4")

	outcome, err := sess.RequestMove("u1", "dest", "text")
	require.NoError(t, err)
	assert.Equal(t, VoteBypassed, outcome)
	assert.Equal(t, "dest", vc.ChannelID())
}

func TestMoveBypassedWithoutSummoner(t *testing.T) {
	env := newTestEnv()
	sess, vc := playingSession(env, "g1", "bot-ch", "")
	env.transport.setOccupants("bot-ch", "bot", "u2", "u3", "u4", "u5")

	outcome, err := sess.RequestMove("u1", "dest", "text")
	require.NoError(t, err)
	assert.Equal(t, VoteBypassed, outcome)
	assert.Equal(t, "dest", vc.ChannelID())
}

func TestMoveBypassedByElevatedRole(t *testing.T) {
	env := newTestEnv()
	env.catalog.settings.ElevatedRoleID = "dj"
	env.transport.elevated["u2"] = true

	sess, vc := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot", "u2", "u3", "u4", "u5")

	outcome, err := sess.RequestMove("u2", "dest", "text")
	require.NoError(t, err)
	assert.Equal(t, VoteBypassed, outcome)
	assert.Equal(t, "dest", vc.ChannelID())
}

func TestMoveBypassedWhenBotIsAlone(t *testing.T) {
	env := newTestEnv()
	sess, vc := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot")

	outcome, err := sess.RequestMove("u1", "dest", "text")
	require.NoError(t, err)
	assert.Equal(t, VoteBypassed, outcome)
	assert.Equal(t, "dest", vc.ChannelID())
}

func TestLeaveBypassedAtLowOccupancy(t *testing.T) {
	env := newTestEnv()
	sess, vc := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2")

	outcome, err := sess.RequestLeave("u1", "text")
	require.NoError(t, err)
	assert.Equal(t, VoteBypassed, outcome)
	assert.Equal(t, StateIdle, sess.State())
	assert.True(t, vc.wasDisconnected())
}

func TestMoveVoteReachesQuorum(t *testing.T) {
	env := newTestEnv()
	sess, vc := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2", "u3", "u4")

	outcome, err := sess.RequestMove("u2", "dest", "text")
	require.NoError(t, err)
	assert.Equal(t, VoteStarted, outcome)

	vote := soleOpenVote(t, sess)

	// Occupancy 5 needs 2 explicit accepts
	sess.HandleReactionAdd(vote.Message.MessageID, "u1", emojiAccept)
	assert.Equal(t, "bot-ch", vc.ChannelID())
	assert.Len(t, sess.openVotes(), 1)

	sess.HandleReactionAdd(vote.Message.MessageID, "u3", emojiAccept)
	assert.Equal(t, "dest", vc.ChannelID())
	assert.Empty(t, sess.openVotes())
	assert.Equal(t, "u2", sess.SummonerID(), "an approved move re-attributes the summoner")
	assert.Contains(t, env.transport.editOf(vote.Message.MessageID), "Vote passed")
}

func TestMoveRequesterAcceptNotCounted(t *testing.T) {
	env := newTestEnv()
	sess, vc := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2")

	// Occupancy 3 needs 1 accept; the requester's own accept must not be it.
	_, err := sess.RequestMove("u1", "dest", "text")
	require.NoError(t, err)
	vote := soleOpenVote(t, sess)

	sess.HandleReactionAdd(vote.Message.MessageID, "u1", emojiAccept)
	assert.Equal(t, "bot-ch", vc.ChannelID())
	assert.Len(t, sess.openVotes(), 1)
	assert.Empty(t, vote.Accepted)

	sess.HandleReactionAdd(vote.Message.MessageID, "u2", emojiAccept)
	assert.Equal(t, "dest", vc.ChannelID())
}

func TestLeaveRequesterAcceptCounts(t *testing.T) {
	env := newTestEnv()
	sess, _ := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2", "u3", "u4")

	_, err := sess.RequestLeave("u1", "text")
	require.NoError(t, err)
	vote := soleOpenVote(t, sess)

	sess.HandleReactionAdd(vote.Message.MessageID, "u1", emojiAccept)
	assert.Len(t, sess.openVotes(), 1)

	sess.HandleReactionAdd(vote.Message.MessageID, "u2", emojiAccept)
	assert.Empty(t, sess.openVotes())
	assert.Equal(t, StateIdle, sess.State())
}

func TestAcceptersOutsideChannelDontCount(t *testing.T) {
	env := newTestEnv()
	sess, vc := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2", "u3", "u4")

	_, err := sess.RequestMove("u2", "dest", "text")
	require.NoError(t, err)
	vote := soleOpenVote(t, sess)

	sess.HandleReactionAdd(vote.Message.MessageID, "ghost1", emojiAccept)
	sess.HandleReactionAdd(vote.Message.MessageID, "ghost2", emojiAccept)

	assert.Equal(t, "bot-ch", vc.ChannelID())
	assert.Len(t, sess.openVotes(), 1)
}

func TestAcceptRetractionKeepsVoteOpen(t *testing.T) {
	env := newTestEnv()
	sess, vc := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2", "u3", "u4")

	_, err := sess.RequestMove("u2", "dest", "text")
	require.NoError(t, err)
	vote := soleOpenVote(t, sess)

	sess.HandleReactionAdd(vote.Message.MessageID, "u1", emojiAccept)
	sess.HandleReactionRemove(vote.Message.MessageID, "u1", emojiAccept)
	sess.HandleReactionAdd(vote.Message.MessageID, "u3", emojiAccept)

	assert.Equal(t, "bot-ch", vc.ChannelID())
	assert.Len(t, sess.openVotes(), 1)
	assert.Len(t, vote.Accepted, 1)
}

func TestMembershipChangeCanTipQuorum(t *testing.T) {
	env := newTestEnv()
	sess, vc := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2", "u3", "u4", "u5", "u6")

	// Occupancy 7 needs 3 accepts; two arrive.
	_, err := sess.RequestMove("u1", "dest", "text")
	require.NoError(t, err)
	vote := soleOpenVote(t, sess)
	sess.HandleReactionAdd(vote.Message.MessageID, "u2", emojiAccept)
	sess.HandleReactionAdd(vote.Message.MessageID, "u3", emojiAccept)
	assert.Len(t, sess.openVotes(), 1)

	// Two non-voters leaving drops the threshold to 2 without a new reaction.
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2", "u3", "u4")
	sess.HandleVoiceMembershipChange("u6", "bot-ch", "")

	assert.Equal(t, "dest", vc.ChannelID())
	assert.Empty(t, sess.openVotes())
}

func TestRequesterDenyCancelsVote(t *testing.T) {
	env := newTestEnv()
	sess, vc := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2", "u3", "u4")

	_, err := sess.RequestMove("u2", "dest", "text")
	require.NoError(t, err)
	vote := soleOpenVote(t, sess)

	// A bystander's deny does nothing
	sess.HandleReactionAdd(vote.Message.MessageID, "u3", emojiDeny)
	assert.Len(t, sess.openVotes(), 1)

	sess.HandleReactionAdd(vote.Message.MessageID, "u2", emojiDeny)
	assert.Empty(t, sess.openVotes())
	assert.Equal(t, "bot-ch", vc.ChannelID())
	assert.Contains(t, env.transport.editOf(vote.Message.MessageID), "cancelled by the requester")
}

func TestMoveVoteCancelledWhenRequesterLeaves(t *testing.T) {
	env := newTestEnv()
	sess, vc := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2", "u3", "u4")

	_, err := sess.RequestMove("u1", "dest", "text")
	require.NoError(t, err)
	vote := soleOpenVote(t, sess)

	// Requester walks out of the bot's channel with zero accepts in
	sess.HandleVoiceMembershipChange("u1", "bot-ch", "elsewhere")

	assert.Empty(t, sess.openVotes())
	assert.Equal(t, "bot-ch", vc.ChannelID())
	assert.Contains(t, env.transport.editOf(vote.Message.MessageID), "requester left")
}

func TestLeaveVoteCancelledWhenBotMoves(t *testing.T) {
	env := newTestEnv()
	sess, _ := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2", "u3", "u4")

	_, err := sess.RequestLeave("u1", "text")
	require.NoError(t, err)
	vote := soleOpenVote(t, sess)

	sess.HandleVoiceMembershipChange("bot", "bot-ch", "new-ch")

	assert.Empty(t, sess.openVotes())
	assert.Equal(t, StatePlaying, sess.State(), "a cancelled leave vote never stops playback")
	assert.Contains(t, env.transport.editOf(vote.Message.MessageID), "moved to another channel")
}

func TestConcurrentVoteEventsAreSafe(t *testing.T) {
	env := newTestEnv()
	sess, vc := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch",
		"bot", "u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9", "u10")

	_, err := sess.RequestMove("u1", "dest", "text")
	require.NoError(t, err)
	vote := soleOpenVote(t, sess)

	// Reactions and membership changes arrive on separate gateway goroutines;
	// tallying must survive them landing at once.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		voter := "drifter" + strconv.Itoa(i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			sess.HandleReactionAdd(vote.Message.MessageID, voter, emojiAccept)
			sess.HandleReactionRemove(vote.Message.MessageID, voter, emojiAccept)
		}()
		go func() {
			defer wg.Done()
			sess.HandleVoiceMembershipChange("u9", "bot-ch", "elsewhere")
		}()
	}
	wg.Wait()

	// The drifters are never occupants, so the vote is still open
	assert.Len(t, sess.openVotes(), 1)
	assert.Equal(t, "bot-ch", vc.ChannelID())
}

func TestTeardownOrphansOpenVotes(t *testing.T) {
	env := newTestEnv()
	sess, _ := playingSession(env, "g1", "bot-ch", "owner")
	env.transport.setOccupants("bot-ch", "bot", "u1", "u2", "u3", "u4")

	_, err := sess.RequestMove("u1", "dest", "text")
	require.NoError(t, err)
	vote := soleOpenVote(t, sess)

	sess.Teardown("test")

	assert.Empty(t, sess.openVotes())
	assert.Contains(t, env.transport.editOf(vote.Message.MessageID), "session ended")

	// Reactions on the orphaned prompt are dead
	sess.HandleReactionAdd(vote.Message.MessageID, "u2", emojiAccept)
	assert.Empty(t, sess.openVotes())
}
