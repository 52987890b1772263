package mezo

// VotingEscrowABI covers the view surface the marketplace reads from the
// Mezo lock contracts: the locked position, its current voting weight, and
// token ownership.
const VotingEscrowABI = `[
  {
    "inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
    "name": "locked",
    "outputs": [
      {"internalType": "int128", "name": "amount", "type": "int128"},
      {"internalType": "uint256", "name": "end", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
    "name": "balanceOfNFT",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
    "name": "ownerOf",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`
